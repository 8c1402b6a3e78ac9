package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port      string
	DBName    string
	JWTKey    string
	SaltRound int

	// CourseID is the id of the single active course. Every read path that
	// needs "the course" goes through this instead of an implicit
	// first-row query.
	CourseID uint

	// Filesystem roots. ExerciseFilesRoot and UserFilesRoot live under
	// DataRoot; MediaRoot is the base all stored file paths are relative to.
	MediaRoot         string
	DataRoot          string
	ExerciseFilesRoot string
	UserFilesRoot     string

	// ProvisionWorkers is the size of the background copy worker pool.
	ProvisionWorkers int

	JupyterHubURL   string
	JupyterHubToken string

	SendgridAPIKey string
	EmailSender    string
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	dataRoot := getEnv("DATA_ROOT", "./data")

	AppConfig = &Config{
		Port:      getEnv("PORT", "3000"),
		DBName:    getEnv("DB_NAME", "course"),
		JWTKey:    getEnv("JWT_SECRET_KEY", "defaultSecret"),
		SaltRound: getEnvInt("SALT_ROUND", 10),

		CourseID: uint(getEnvInt("COURSE_ID", 1)),

		MediaRoot:         getEnv("MEDIA_ROOT", dataRoot),
		DataRoot:          dataRoot,
		ExerciseFilesRoot: getEnv("EXERCISE_FILES_ROOT", filepath.Join(dataRoot, "exercise_files")),
		UserFilesRoot:     getEnv("USER_FILES_ROOT", filepath.Join(dataRoot, "user_directories")),

		ProvisionWorkers: getEnvInt("PROVISION_WORKERS", 4),

		JupyterHubURL:   getEnv("JUPYTERHUB_URL", ""),
		JupyterHubToken: getEnv("JUPYTERHUB_TOKEN", ""),

		SendgridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		EmailSender:    getEnv("EMAIL_SENDER", "noreply@localhost"),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.ProvisionWorkers < 1 {
		log.Println("Warning: PROVISION_WORKERS must be at least 1, falling back to 4.")
		AppConfig.ProvisionWorkers = 4
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}
