package db

import (
	"yami-economy/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus"

	"gorm.io/driver/mysql" // MySQL driver for GORM
	"gorm.io/gorm"         // GORM ORM library
	"gorm.io/gorm/clause"  // Upsert clauses
)

// seedConfigs are the economy parameters written at deployment. Values are
// inserted only when the key is missing so admin-tuned values survive
// re-running the migration.
var seedConfigs = []domain.EconomyConfig{
	{Key: domain.CfgDailyGrantAmount, Value: 10, Description: "Daily basic income credited to every wallet"},
	{Key: domain.CfgDecayRatePercent, Value: 20, Description: "Daily demurrage rate in whole percent"},
	{Key: domain.CfgAIConsultCost, Value: 1, Description: "Token cost of an AI consultation"},
	{Key: domain.CfgHumanConsultCost, Value: 5, Description: "Token cost of a human consultation"},
	{Key: domain.CfgResponseReward, Value: 3, Description: "Reward for answering a consultation"},
	{Key: domain.CfgDailyRewardCap, Value: 15, Description: "Max reward income per wallet per UTC day"},
	{Key: domain.CfgInitialBalance, Value: 10, Description: "Starting balance for new wallets"},
	{Key: domain.CfgMaxBalance, Value: 100, Description: "Hard ceiling on any wallet balance"},
}

// Migrate performs automatic migration for the database schema and seeds the
// economy parameter table
func Migrate(dsn string) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{}) // Open a connection to the database
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err) // Log fatal error if connection fails
	}
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	err = db.AutoMigrate(&domain.User{}, &domain.Wallet{}, &domain.Transaction{}, &domain.EconomyConfig{})
	if err != nil {
		logrus.Fatalf("migration failed: %v", err) // Log fatal error if migration fails
	}
	// Seed economy parameters, keeping any values an admin already changed
	err = db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seedConfigs).Error
	if err != nil {
		logrus.Fatalf("config seeding failed: %v", err) // Log fatal error if seeding fails
	}
	logrus.Info("Migration completed.") // Log successful migration
}
