package database

import (
	"time"

	"vulnreport/internal/config"
	"vulnreport/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	const maxAttempts = 10
	for i := 1; i <= maxAttempts; i++ {
		zap.L().Info("connecting to DB", zap.Int("attempt", i), zap.Int("max", maxAttempts))

		if cfg.Postgres() {
			DB, err = gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{})
		} else {
			DB, err = gorm.Open(sqlite.Open(cfg.DBDSN), &gorm.Config{})
		}
		if err == nil {
			break
		}

		zap.L().Warn("failed to connect to DB", zap.Error(err))
		time.Sleep(2 * time.Second)
	}

	if err != nil {
		zap.L().Fatal("could not connect to db", zap.Int("attempts", maxAttempts), zap.Error(err))
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.Vulnerability{},
		&models.VulnerabilityAccess{},
		&models.Comment{},
		&models.CommentLike{},
		&models.ReportConfig{},
		&models.AIConfig{},
		&models.AuditLog{},
	)
	if err != nil {
		zap.L().Fatal("failed to migrate", zap.Error(err))
	}

	migrateLegacyColumns()
	createDefaultAdmin(cfg)
}

// migrateLegacyColumns backfills columns that predate AutoMigrate-managed
// schemas. Best effort: a pre-existing schema must never block startup.
func migrateLegacyColumns() {
	type legacy struct {
		table  string
		column string
		ddl    string
	}
	for _, m := range []legacy{
		{"vulnerabilities", "company_name", "ALTER TABLE vulnerabilities ADD COLUMN company_name varchar(100)"},
		{"vulnerabilities", "tester_name", "ALTER TABLE vulnerabilities ADD COLUMN tester_name varchar(100)"},
		{"users", "company_id", "ALTER TABLE users ADD COLUMN company_id integer"},
	} {
		if DB.Migrator().HasTable(m.table) && !DB.Migrator().HasColumn(m.table, m.column) {
			if err := DB.Exec(m.ddl).Error; err != nil {
				zap.L().Warn("legacy column migration skipped",
					zap.String("table", m.table), zap.String("column", m.column), zap.Error(err))
			}
		}
	}
}

// createDefaultAdmin seeds the single admin account when none exists.
func createDefaultAdmin(cfg *config.Config) {
	username := cfg.AdminUsername
	if username == "" {
		username = "admin"
	}
	password := cfg.AdminPassword
	if password == "" {
		password = "ChangeMe123!"
	}

	var count int64
	if err := DB.Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&count).Error; err != nil {
		zap.L().Warn("failed to check admin user", zap.Error(err))
		return
	}
	if count > 0 {
		// the one allowed admin already exists
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		zap.L().Warn("failed to hash default admin password", zap.Error(err))
		return
	}

	admin := models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}

	if err := DB.Create(&admin).Error; err != nil {
		zap.L().Warn("failed to create default admin", zap.Error(err))
		return
	}

	zap.L().Info("created default admin user", zap.String("username", username))
}
