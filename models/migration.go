package models

import (
	"log"

	"github.com/hooper-lee/excant-backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&User{},
		&Document{},
		&Order{}, &Subscription{},
		&SheetTemplate{},
		&EventRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
