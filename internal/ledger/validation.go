package ledger

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"ledger/domain/entity"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("progress_status", func(fl validator.FieldLevel) bool {
		return entity.ProgressStatus(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("location", func(fl validator.FieldLevel) bool {
		return entity.Location(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
		return entity.Priority(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// CheckInput runs the struct's validate tags and folds every violation into
// one InvalidInput error
func (m *Manager) CheckInput(in interface{}) error {
	err := m.validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewError(CodeInvalidInput, err, "invalid input")
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeField(fe))
	}
	return NewError(CodeInvalidInput, nil, "%s", strings.Join(msgs, "; "))
}

func describeField(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "progress_status":
		return fmt.Sprintf("%s %q is not a known status", field, fe.Value())
	case "location":
		return fmt.Sprintf("%s must be %q or %q", field, entity.LocationInRoom, entity.LocationOutRoom)
	case "priority":
		return fmt.Sprintf("%s must be %s, %s or %s", field, entity.PriorityHigh, entity.PriorityMedium, entity.PriorityLow)
	case "phone":
		return fmt.Sprintf("%s must be 10 to 15 digits with an optional leading +", field)
	case "latitude", "longitude":
		return fmt.Sprintf("%s is not a valid %s", field, fe.Tag())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// CheckMedia validates upload payloads and returns each item's sniffed MIME
// type. Items must be non-empty, within the size limit and an image or video.
func (m *Manager) CheckMedia(media []entity.Media) ([]string, error) {
	if len(media) > m.limits.MaxMediaItems {
		return nil, NewError(CodeInvalidInput, nil,
			"at most %d media items are accepted, got %d", m.limits.MaxMediaItems, len(media))
	}

	types := make([]string, len(media))
	for i, item := range media {
		if len(item.Data) == 0 {
			return nil, NewError(CodeInvalidInput, nil, "media item %d (%s) is empty", i+1, item.Filename)
		}
		if int64(len(item.Data)) > m.limits.MaxMediaBytes {
			return nil, NewError(CodeInvalidInput, nil,
				"media item %d (%s) exceeds %d bytes", i+1, item.Filename, m.limits.MaxMediaBytes)
		}
		mt := mimetype.Detect(item.Data)
		if !strings.HasPrefix(mt.String(), "image/") && !strings.HasPrefix(mt.String(), "video/") {
			return nil, NewError(CodeInvalidInput, nil,
				"media item %d (%s) has type %s; only images and videos are accepted", i+1, item.Filename, mt.String())
		}
		types[i] = mt.String()
	}
	return types, nil
}
