package obexsim

import (
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/bluetuith-org/pbap-client/internal/serde"
)

// Contact is one phonebook entry.
type Contact struct {
	Name     string   `json:"name"`
	Family   string   `json:"family,omitempty"`
	Given    string   `json:"given,omitempty"`
	Phones   []string `json:"phones,omitempty"`
	Emails   []string `json:"emails,omitempty"`
	Org      string   `json:"org,omitempty"`
	Nickname string   `json:"nickname,omitempty"`
	Note     string   `json:"note,omitempty"`
	CallTime string   `json:"call_time,omitempty"`
}

// Phonebook maps object paths ("telecom/pb.vcf") to their entries.
type Phonebook map[string][]Contact

// DefaultPhonebook returns a small phonebook with the standard PBAP objects.
func DefaultPhonebook() Phonebook {
	return Phonebook{
		"telecom/pb.vcf": {
			{Name: "Owner", Phones: []string{"+1 555 0100"}},
			{Name: "Alice Doe", Family: "Doe", Given: "Alice", Phones: []string{"+1 555 0101"}, Emails: []string{"alice@example.com"}},
			{Name: "Bob Roe", Family: "Roe", Given: "Bob", Phones: []string{"+1 555 0102", "+1 555 0199"}, Org: "Example Inc."},
			{Name: "Emergency", Phones: []string{"911"}},
		},
		"telecom/fav.vcf": {
			{Name: "Alice Doe", Family: "Doe", Given: "Alice", Phones: []string{"+1 555 0101"}},
		},
		"telecom/ich.vcf": {
			{Name: "Bob Roe", Phones: []string{"+1 555 0102"}, CallTime: "20260101T101500"},
		},
		"telecom/och.vcf": {
			{Name: "Emergency", Phones: []string{"911"}, CallTime: "20260102T080000"},
		},
		"telecom/mch.vcf": {},
		"telecom/cch.vcf": {
			{Name: "Bob Roe", Phones: []string{"+1 555 0102"}, CallTime: "20260101T101500"},
			{Name: "Emergency", Phones: []string{"911"}, CallTime: "20260102T080000"},
		},
		"telecom/spd.vcf": {},
		"SIM1/telecom/pb.vcf": {
			{Name: "SIM Contact", Phones: []string{"+1 555 0200"}},
		},
		"SIM1/telecom/ich.vcf": {},
		"SIM1/telecom/och.vcf": {},
		"SIM1/telecom/mch.vcf": {},
		"SIM1/telecom/cch.vcf": {},
	}
}

// LoadPhonebook reads a JSON phonebook fixture.
func LoadPhonebook(file string) (Phonebook, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fault.Wrap(err, ftag.With(ftag.NotFound), fmsg.With("Cannot open phonebook "+file))
	}
	defer f.Close()

	book := make(Phonebook)
	if err := serde.DecodeJson(f, &book); err != nil {
		return nil, fault.Wrap(err, ftag.With(ftag.InvalidArgument), fmsg.With("Cannot parse phonebook "+file))
	}

	return book, nil
}

// resolve returns the object key for p, relative to folder unless absolute.
func (b Phonebook) resolve(folder, p string) (string, bool) {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") && !strings.Contains(p, "/") {
		p = path.Join(folder, p)
	}
	p = strings.TrimPrefix(path.Clean("/"+p), "/")

	_, ok := b[p]

	return p, ok
}

// hasFolder reports whether folder is the root or an ancestor of an object.
func (b Phonebook) hasFolder(folder string) bool {
	if folder == "" {
		return true
	}

	for key := range b {
		if strings.HasPrefix(key, folder+"/") || strings.TrimSuffix(key, ".vcf") == folder {
			return true
		}
	}

	return false
}

// Lookup returns the entries of the main phonebook with a phone number
// matching number, along with their vCard handles.
func (b Phonebook) Lookup(number string) []Record {
	want := digits(number)
	if want == "" {
		return nil
	}

	var records []Record
	for i, c := range b["telecom/pb.vcf"] {
		for _, phone := range c.Phones {
			if digits(phone) == want {
				records = append(records, Record{Name: c.Name, Handle: vcardHandle(i)})
				break
			}
		}
	}

	return records
}

// Record is a lookup result.
type Record struct {
	Name   string
	Handle string
}

// Objects returns the object paths in lexical order.
func (b Phonebook) Objects() []string {
	keys := make([]string, 0, len(b))
	for key := range b {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}

func vcardHandle(i int) string {
	return strconv.Itoa(i) + ".vcf"
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}

		return -1
	}, s)
}

// selected reports whether c is returned under the vCard selector mask.
func (c Contact) selected(mask bluetooth.FilterMask, op bluetooth.FilterOperator) bool {
	if mask == bluetooth.FilterAll {
		return true
	}

	matched, total := 0, 0
	for _, p := range []bluetooth.FilterMask{
		bluetooth.PropertyFN, bluetooth.PropertyN, bluetooth.PropertyTel,
		bluetooth.PropertyEmail, bluetooth.PropertyOrg, bluetooth.PropertyNickname,
		bluetooth.PropertyNote, bluetooth.PropertyCallDateTime,
	} {
		if !mask.Has(p) {
			continue
		}

		total++
		if c.has(p) {
			matched++
		}
	}

	if op == bluetooth.FilterAnd {
		return matched == total
	}

	return matched > 0
}

func (c Contact) has(p bluetooth.FilterMask) bool {
	switch p {
	case bluetooth.PropertyFN:
		return c.Name != ""
	case bluetooth.PropertyN:
		return c.Family != "" || c.Given != ""
	case bluetooth.PropertyTel:
		return len(c.Phones) > 0
	case bluetooth.PropertyEmail:
		return len(c.Emails) > 0
	case bluetooth.PropertyOrg:
		return c.Org != ""
	case bluetooth.PropertyNickname:
		return c.Nickname != ""
	case bluetooth.PropertyNote:
		return c.Note != ""
	case bluetooth.PropertyCallDateTime:
		return c.CallTime != ""
	}

	return false
}

// VCard renders the contact in the given format ("vcard21" or "vcard30").
func (c Contact) VCard(format string) string {
	version := "2.1"
	if format == "vcard30" {
		version = "3.0"
	}

	sb := strings.Builder{}
	line := func(k, v string) {
		sb.WriteString(k)
		sb.WriteString(":")
		sb.WriteString(v)
		sb.WriteString("\r\n")
	}

	line("BEGIN", "VCARD")
	line("VERSION", version)
	line("N", c.Family+";"+c.Given)
	line("FN", c.Name)
	for _, phone := range c.Phones {
		line("TEL", phone)
	}
	for _, email := range c.Emails {
		line("EMAIL", email)
	}
	if c.Org != "" {
		line("ORG", c.Org)
	}
	if c.Nickname != "" {
		line("NICKNAME", c.Nickname)
	}
	if c.Note != "" {
		line("NOTE", c.Note)
	}
	if c.CallTime != "" {
		line("X-IRMC-CALL-DATETIME", c.CallTime)
	}
	line("END", "VCARD")

	return sb.String()
}
