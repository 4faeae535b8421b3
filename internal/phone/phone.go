package phone

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var ErrConflictingOptions = errors.New("a default country code cannot be combined with assuming E.164")

// Number is what the lookup form expects, a country calling code and the
// national significant number.
type Number struct {
	CountryCode int32
	National    string
}

func (n Number) CC() string {
	return strconv.FormatInt(int64(n.CountryCode), 10)
}

// String renders the number the way results are labelled, ex. "+1 6502530000".
func (n Number) String() string {
	return fmt.Sprintf("+%d %s", n.CountryCode, n.National)
}

type Options struct {
	// libphonenumber dialing region used for numbers without a country code
	Region string
	// country code prepended to numbers that do not start with '+'
	DefaultCC string
	// treat numbers without a leading '+' as E.164 anyway
	AssumeE164 bool
}

func (o Options) Validate() error {
	if o.DefaultCC != "" && o.AssumeE164 {
		return ErrConflictingOptions
	}
	return nil
}

// Resolve splits a user supplied phone number into its country code and
// national number.
func Resolve(raw string, opts Options) (Number, error) {
	err := opts.Validate()
	if err != nil {
		return Number{}, err
	}

	region := opts.Region
	if region == "" {
		region = "US"
	}

	pn := strings.TrimSpace(raw)
	if !strings.HasPrefix(pn, "+") {
		cc := strings.TrimPrefix(strings.TrimSpace(opts.DefaultCC), "+")
		switch {
		case cc != "":
			pn = fmt.Sprintf("+%s %s", cc, pn)
		case opts.AssumeE164:
			pn = "+" + pn
		}
	}

	parsed, err := phonenumbers.Parse(pn, strings.ToUpper(region))
	if err != nil {
		return Number{}, fmt.Errorf("parse %q: %w", raw, err)
	}

	return Number{
		CountryCode: parsed.GetCountryCode(),
		National:    phonenumbers.GetNationalSignificantNumber(parsed),
	}, nil
}
