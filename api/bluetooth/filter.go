package bluetooth

import (
	"math/bits"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/bluetuith-org/pbap-client/api/errorkinds"
)

// FilterMask is a bitmask over the addressable vCard properties.
type FilterMask uint64

// vCard property bits.
const (
	PropertyVersion FilterMask = 1 << iota
	PropertyFN
	PropertyN
	PropertyPhoto
	PropertyBirthday
	PropertyAddress
	PropertyLabel
	PropertyTel
	PropertyEmail
	PropertyMailer
	PropertyTimezone
	PropertyGeo
	PropertyTitle
	PropertyRole
	PropertyLogo
	PropertyAgent
	PropertyOrg
	PropertyNote
	PropertyRevision
	PropertySound
	PropertyURL
	PropertyUID
	PropertyKey
	PropertyNickname
	PropertyCategories
	PropertyProductID
	PropertyClass
	PropertySortString
	PropertyCallDateTime
	PropertySpeedDialKey
	PropertyUCI
	PropertyBTUID
)

// FilterAll selects every property.
const FilterAll FilterMask = 0

var propertyNames = [...]string{
	"VERSION", "FN", "N", "PHOTO", "BDAY", "ADR", "LABEL", "TEL",
	"EMAIL", "MAILER", "TZ", "GEO", "TITLE", "ROLE", "LOGO", "AGENT",
	"ORG", "NOTE", "REV", "SOUND", "URL", "UID", "KEY", "NICKNAME",
	"CATEGORIES", "PROID", "CLASS", "SORT-STRING", "X-IRMC-CALL-DATETIME",
	"X-BT-SPEEDDIALKEY", "X-BT-UCI", "X-BT-UID",
}

// ParseFilterMask builds a mask from property names, e.g. "FN", "TEL".
func ParseFilterMask(names ...string) (FilterMask, error) {
	var mask FilterMask

Names:
	for _, name := range names {
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "" {
			continue
		}

		for i, property := range propertyNames {
			if property == name {
				mask |= 1 << i
				continue Names
			}
		}

		return 0, fault.Wrap(errorkinds.ErrMethodCall,
			ftag.With(ftag.InvalidArgument),
			fmsg.With("unknown vCard property "+name),
		)
	}

	return mask, nil
}

// Has reports whether every bit of p is set in the mask.
func (f FilterMask) Has(p FilterMask) bool {
	return f&p == p
}

// Properties returns the names of the selected properties, in bit order.
func (f FilterMask) Properties() []string {
	names := make([]string, 0, bits.OnesCount64(uint64(f)))
	for i, property := range propertyNames {
		if f&(1<<i) != 0 {
			names = append(names, property)
		}
	}

	return names
}

// String returns the selected property names joined by '|'.
func (f FilterMask) String() string {
	if f == FilterAll {
		return "ALL"
	}

	return strings.Join(f.Properties(), "|")
}

// FilterOperator describes how multiple selected properties combine
// when the server chooses which records to return.
type FilterOperator uint8

const (
	FilterOr FilterOperator = iota
	FilterAnd
)

// ParseFilterOperator parses "and" or "or".
func ParseFilterOperator(s string) (FilterOperator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "or":
		return FilterOr, nil
	case "and":
		return FilterAnd, nil
	}

	return FilterOr, fault.Wrap(errorkinds.ErrMethodCall,
		ftag.With(ftag.InvalidArgument),
		fmsg.With("unknown filter operator "+s),
	)
}

// String converts a FilterOperator to a string.
func (f FilterOperator) String() string {
	if f == FilterAnd {
		return "AND"
	}

	return "OR"
}
