package database

const (
	defaultPasswordEnvVar = "DATABASE_PASSWORD"
	defaultUsernameEnvVar = "DATABASE_USER"
)

// Options configure the job store connection.
type Options struct {
	// URL is the postgres connection string. Credential placeholders of the
	// form $VARNAME are substituted from the environment before connecting,
	// so the url can be committed to config without secrets in it.
	URL string

	// PasswordEnvVar names the env var holding the database password,
	// substituted for its $-placeholder in URL. Defaults to DATABASE_PASSWORD.
	PasswordEnvVar string

	// UsernameEnvVar names the env var holding the database username,
	// substituted for its $-placeholder in URL. Defaults to DATABASE_USER.
	UsernameEnvVar string
}

func (o *Options) SetDefaults() {
	if o.PasswordEnvVar == "" {
		o.PasswordEnvVar = defaultPasswordEnvVar
	}
	if o.UsernameEnvVar == "" {
		o.UsernameEnvVar = defaultUsernameEnvVar
	}
}
