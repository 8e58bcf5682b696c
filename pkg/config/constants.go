package config

// EnvPrefix is the envconfig namespace for all PalletWorks services.
const EnvPrefix = "PALLETWORKS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "PALLETWORKS_DB_DSN"
	EnvDBHost = "PALLETWORKS_DB_HOST"
	EnvDBUser = "PALLETWORKS_DB_USER"
	EnvDBName = "PALLETWORKS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
