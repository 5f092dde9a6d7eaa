package config

// EnvPrefix is empty because every field carries its fully qualified name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	AuthProviderJWT      = "jwt"
	AuthProviderFirebase = "firebase"

	CatalogBackendPostgres  = "postgres"
	CatalogBackendFirestore = "firestore"
)

const (
	EnvAppEnv         = "ACERTAMAIS_APP_ENV"
	EnvPort           = "ACERTAMAIS_APP_PORT"
	EnvDBDSN          = "ACERTAMAIS_DB_DSN"
	EnvDBHost         = "ACERTAMAIS_DB_HOST"
	EnvDBUser         = "ACERTAMAIS_DB_USER"
	EnvDBName         = "ACERTAMAIS_DB_NAME"
	EnvDBPassword     = "ACERTAMAIS_DB_PASSWORD"
	EnvRedisURL       = "ACERTAMAIS_REDIS_URL"
	EnvJWTSecret      = "ACERTAMAIS_JWT_SECRET"
	EnvJWTIssuer      = "ACERTAMAIS_JWT_ISSUER"
	EnvAuthProvider   = "ACERTAMAIS_AUTH_PROVIDER"
	EnvGCPProjectID   = "ACERTAMAIS_GCP_PROJECT_ID"
	EnvCatalogBackend = "ACERTAMAIS_CATALOG_BACKEND"
	EnvSubmissionLock = "ACERTAMAIS_SUBMISSION_LOCK_TTL"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
