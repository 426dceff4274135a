package audit

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SerializeValue converts an arbitrary field value into a stable, loggable
// string form. It never panics; anything a specific rule cannot handle falls
// back to the default string conversion.
//
// Policy, in priority order: nil stays nil, decimals get a canonical
// fixed-point form, times use RFC 3339, UUIDs their canonical form, tracked
// entities collapse to their primary key, fmt.Stringer is honored, and
// everything else goes through fmt.
func SerializeValue(v any) (out *string) {
	defer func() {
		if recover() != nil {
			s := fmt.Sprint(v)
			out = &s
		}
	}()

	if v == nil {
		return nil
	}

	var s string
	switch val := v.(type) {
	case decimal.Decimal:
		s = canonicalDecimal(val)
	case *decimal.Decimal:
		if val == nil {
			return nil
		}
		s = canonicalDecimal(*val)
	case time.Time:
		s = val.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if val == nil {
			return nil
		}
		s = val.UTC().Format(time.RFC3339Nano)
	case uuid.UUID:
		s = val.String()
	case Entity:
		s = val.EntityID().String()
	case string:
		s = val
	case *string:
		if val == nil {
			return nil
		}
		s = *val
	case bool:
		s = strconv.FormatBool(val)
	case int:
		s = strconv.Itoa(val)
	case int64:
		s = strconv.FormatInt(val, 10)
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case fmt.Stringer:
		s = val.String()
	default:
		s = fmt.Sprint(val)
	}
	return &s
}

// canonicalDecimal strips trailing fractional zeros so that equivalent
// representations ("1.0", "1.00") serialize identically and do not produce
// spurious field changes.
func canonicalDecimal(d decimal.Decimal) string {
	s := d.String()
	if strings.ContainsRune(s, '.') {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}
