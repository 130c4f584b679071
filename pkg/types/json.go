package types

// StringList is a JSON-serialized string slice column.
type StringList []string

// DeliveryCodes maps a product id to the code values delivered for that line
// item. Orders own this snapshot; it is a point-in-time copy, never a live
// reference into the code store.
type DeliveryCodes map[string][]string

// Total returns the number of codes across all products.
func (d DeliveryCodes) Total() int {
	n := 0
	for _, codes := range d {
		n += len(codes)
	}
	return n
}

// SocialLinks holds the storefront's social profile URLs.
type SocialLinks struct {
	Facebook  string `json:"facebook"`
	Twitter   string `json:"twitter"`
	Instagram string `json:"instagram"`
	Telegram  string `json:"telegram"`
	YouTube   string `json:"youtube"`
}
