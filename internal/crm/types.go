package crm

// Customer is a read-only projection of a customer record in the
// field-service system. The portal never mutates these.
type Customer struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type,omitempty"` // "Residential" | "Commercial"
	Address     *Address `json:"address,omitempty"`
	Email       string   `json:"email,omitempty"`
	Emails      []string `json:"emails,omitempty"`
	PhoneNumber string   `json:"phoneNumber,omitempty"`
	Active      bool     `json:"active"`
}

type Address struct {
	Street string `json:"street,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Zip    string `json:"zip,omitempty"`
}

// DisplayAddress flattens the address for selection lists.
func (c Customer) DisplayAddress() string {
	if c.Address == nil {
		return ""
	}
	out := c.Address.Street
	if c.Address.City != "" {
		if out != "" {
			out += ", "
		}
		out += c.Address.City
	}
	return out
}

// AllEmails returns every distinct address on file, primary first.
func (c Customer) AllEmails() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(e string) {
		if e == "" || seen[e] {
			return
		}
		seen[e] = true
		out = append(out, e)
	}
	add(c.Email)
	for _, e := range c.Emails {
		add(e)
	}
	return out
}

type customerList struct {
	Data    []Customer `json:"data"`
	HasMore bool       `json:"hasMore"`
}
