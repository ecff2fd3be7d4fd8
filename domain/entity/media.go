package entity

// Locator addresses a stored media blob: Name is the store-relative key and
// URL the externally resolvable address.
type Locator struct {
	Name string `db:"name" json:"name"`
	URL  string `db:"url" json:"url"`
}

// Media is an upload payload handed to the ledger
type Media struct {
	Filename string
	Data     []byte
}
