package config

// Credentials is the email/password pair for the Microsoft sign-in.
// Held in memory for the duration of a run only: the password is never
// written to the configuration store and never logged. The email may be
// persisted through the scraper section for convenience.
type Credentials struct {
	Email    string
	Password string
}
