package config

import (
	"os"

	"dario.cat/mergo"
)

const DefaultBaseUrl = "https://freecarrierlookup.com"

// Lookup configures the fcl command, flags given on the command line take
// precedence over it.
type Lookup struct {
	BaseUrl   string `json:"base_url"`
	UserAgent string `json:"user_agent"`
	// seconds between lookups, 0 disables rate limiting
	RateLimit   int    `json:"rate_limit"`
	Region      string `json:"region"`
	CountryCode string `json:"cc"`
	AssumeE164  bool   `json:"assume_e164"`
	Format      string `json:"format"`
	CaptchaDir  string `json:"captcha_dir"`
	KeepCaptcha bool   `json:"keep_captcha"`
	// directory to dump raw http exchanges into, empty disables dumping
	DumpHttp string `json:"dump_http"`
	// labels left out of results, "Phone Number" when not set
	Exclude []string `json:"exclude"`
	// drop text that comes before the first label instead of keeping it as "Note"
	DropUnlabeled bool `json:"drop_unlabeled"`
}

func DefaultLookup() Lookup {
	return Lookup{
		BaseUrl:    DefaultBaseUrl,
		Region:     "US",
		Format:     "text",
		CaptchaDir: os.TempDir(),
	}
}

// LoadLookup reads the lookup config at path and fills anything left unset with
// the defaults. A missing file is not an error.
func LoadLookup(path string) (Lookup, error) {
	cfg, err := ReadConfig[Lookup](path)
	if err != nil && !os.IsNotExist(err) {
		return Lookup{}, err
	}
	err = mergo.Merge(&cfg, DefaultLookup())
	if err != nil {
		return Lookup{}, err
	}
	return cfg, nil
}
