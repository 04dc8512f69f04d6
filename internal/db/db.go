package db

import (
	"fmt"
	"strings"
	"time"

	"minicrm/internal/auth"
	"minicrm/internal/crm"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the store for driver ("postgres" or "sqlite"). Constraint
// violations are translated to gorm.ErrDuplicatedKey / ErrForeignKeyViolated.
func Connect(driver, dsn string, log *logrus.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(dsn))
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	cfg := &gorm.Config{TranslateError: true}
	if log != nil {
		cfg.Logger = gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	} else {
		cfg.Logger = gormlogger.Discard
	}

	gdb, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// One writer at a time; concurrent writers would see SQLITE_BUSY.
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return gdb, nil
}

// sqliteDSN turns on foreign keys so task rows cascade with their contact.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables; the contact -> tasks relation carries ON DELETE CASCADE.
	if err := gdb.AutoMigrate(
		&crm.Contact{},
		&crm.Task{},
		&auth.User{},
	); err != nil {
		return err
	}

	// Empty values never collide, so uniqueness only covers present ones.
	stmts := []string{
		`create unique index if not exists uq_contacts_email on contacts(email) where email is not null and email <> '';`,
		`create unique index if not exists uq_contacts_phone on contacts(phone) where phone is not null and phone <> '';`,
		`create unique index if not exists uq_tasks_contact_title on tasks(contact_id, title);`,
		`create index if not exists idx_contacts_status on contacts(status);`,
		`create index if not exists idx_tasks_done_priority on tasks(is_done, priority);`,
		`create index if not exists idx_tasks_due on tasks(due_date);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
