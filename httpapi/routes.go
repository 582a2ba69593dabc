package httpapi

const (
	AuthorizeRoute = "/authorize"
	CallbackRoute  = "/oauth2callback"
	UserRoute      = "/user"
	LogoutRoute    = "/logout"
	HealthRoute    = "/healthz"
	MetricsRoute   = "/metrics"
)
