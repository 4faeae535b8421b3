// Package testutil holds an in-process stand-in for freecarrierlookup.com.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// 1x1 transparent gif
var CaptchaImage = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

const (
	CaptchaAnswer = "17"

	// national numbers with special behavior
	MalformedNumber = "5550199"
	BrokenNumber    = "5550100"
	InvalidNumber   = "665640"

	sessionCookie = "PHPSESSID"
	sessionValue  = "session-1"
)

// Site fakes the home page, captcha and lookup endpoints. A lookup needs the
// session cookie handed out by the home page and the answer CaptchaAnswer.
type Site struct {
	URL string

	Connects      atomic.Int32
	Lookups       atomic.Int32
	lastUserAgent atomic.Value
}

func (s *Site) LastUserAgent() string {
	ua, _ := s.lastUserAgent.Load().(string)
	return ua
}

func NewSite(t testing.TB) *Site {
	s := &Site{}
	srv := httptest.NewServer(s.handler())
	t.Cleanup(srv.Close)
	s.URL = srv.URL
	return s
}

func hasSession(r *http.Request) bool {
	c, err := r.Cookie(sessionCookie)
	return err == nil && c.Value == sessionValue
}

func (s *Site) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		s.Connects.Add(1)
		s.lastUserAgent.Store(r.Header.Get("User-Agent"))
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: sessionValue, Path: "/"})
		w.Write([]byte("<html><body>Free Carrier Lookup</body></html>"))
	})
	mux.HandleFunc("/captcha/captcha.php", func(w http.ResponseWriter, r *http.Request) {
		if !hasSession(r) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "image/gif")
		w.Write(CaptchaImage)
	})
	mux.HandleFunc("/getcarrier_free.php", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !hasSession(r) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		err := r.ParseForm()
		if err != nil || r.PostForm.Get("sessionlogin") != "1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.Lookups.Add(1)

		cc := r.PostForm.Get("cc")
		num := r.PostForm.Get("phonenum")

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.PostForm.Get("captcha_entered") != CaptchaAnswer:
			w.Write([]byte(`{"status":"error","html":"<p>Incorrect captcha.</p>"}`))
		case num == MalformedNumber:
			w.Write([]byte(`<html>maintenance</html>`))
		case num == BrokenNumber:
			w.WriteHeader(http.StatusInternalServerError)
		case num == InvalidNumber:
			w.Write([]byte(`{"status":"error","html":"Invalid <b>number</b>"}`))
		default:
			w.Write([]byte(`{"status":"success","html":"<p><b>Phone Number:</b> ` + cc + num +
				`<br/><b>Carrier:</b> Big Corp Wireless<br/><b>Is Wireless:</b> y<br/>` +
				`<b>SMS Gateway Address:</b> ` + num + `@sms.example.com<br/>` +
				`<b>MMS Gateway Address:</b><br/></p>"}`))
		}
	})
	return mux
}
