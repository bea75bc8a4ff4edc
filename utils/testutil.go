package utils

import (
	"github.com/rodneysullivan/browserid/storage/kv"
	"github.com/rodneysullivan/browserid/storage/kv/leveldbkv"
)

// WithDB runs f against a fresh in-memory database.
func WithDB(f func(db kv.DB)) {
	db, err := leveldbkv.OpenMemDB()
	if err != nil {
		panic(err)
	}
	defer db.Close()
	f(db)
}
