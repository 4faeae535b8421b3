package telemetry

// API is how components report failures and progress. The cli backs it with
// slog, tests back it with a Recorder and assert on what was reported.
type API interface {
	// ReportBroken reports a component that failed in a way that needs fixing.
	//
	// The `id` names the component and method (ex. `client.submit`), never the
	// step inside it that failed. Details go in params or in a wrapped error.
	// Ids are lowercase, use underscores inside names and a dot before the method.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something unexpected that did not stop the component.
	ReportWarning(id string, params ...any)

	// ReportDebug reports information that is only shown in verbose mode.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the current value of a gauge like count.
	ReportCount(id string, count int64)
}

type scoped struct {
	prefix string
	inner  API
}

// Scoped returns an API that prefixes every id with "<namespace>: ".
func Scoped(namespace string, inner API) API {
	return scoped{prefix: namespace + ": ", inner: inner}
}

func (s scoped) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.prefix+id, params...)
}

func (s scoped) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.prefix+id, params...)
}

func (s scoped) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.prefix+msg, params...)
}

func (s scoped) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.prefix+id, count)
}
