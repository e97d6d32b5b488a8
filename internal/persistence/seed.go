package persistence

import (
	"fmt"

	"clinic-store/internal/globalconst"
	"clinic-store/internal/store"

	"golang.org/x/crypto/bcrypt"
)

// AdminEmail is the login of the seeded administrator account.
const AdminEmail = "admin@clinic.local"

// seedTherapies is the reference catalogue every new store starts with.
var seedTherapies = []map[string]any{
	{"name": "Abhyanga", "category": "massage", "durationMinutes": 60, "price": 2500, "active": true,
		"description": "Full-body warm oil massage"},
	{"name": "Shirodhara", "category": "head", "durationMinutes": 45, "price": 3000, "active": true,
		"description": "Continuous stream of warm oil over the forehead"},
	{"name": "Swedana", "category": "steam", "durationMinutes": 30, "price": 1200, "active": true,
		"description": "Herbal steam therapy"},
	{"name": "Nasya", "category": "detox", "durationMinutes": 20, "price": 900, "active": true,
		"description": "Nasal administration of medicated oils"},
	{"name": "Basti", "category": "detox", "durationMinutes": 40, "price": 2800, "active": true,
		"description": "Medicated enema therapy"},
}

var seedInventory = []map[string]any{
	{"name": "Sesame oil", "unit": "litre", "quantity": 20, "reorderLevel": 5},
	{"name": "Ksheerabala taila", "unit": "litre", "quantity": 8, "reorderLevel": 2},
	{"name": "Dashamoola decoction", "unit": "litre", "quantity": 10, "reorderLevel": 3},
}

// SeedSnapshot builds the default population: reference therapies and
// inventory, one administrator, every other collection empty. Ids and
// timestamps are assigned when the snapshot is loaded into a store.
func SeedSnapshot(adminPassword string) (store.Snapshot, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}

	snap := make(store.Snapshot, len(globalconst.DeclaredCollections))
	for _, name := range globalconst.DeclaredCollections {
		snap[name] = []store.Record{}
	}
	for _, therapy := range seedTherapies {
		snap[globalconst.Therapies] = append(snap[globalconst.Therapies], store.Record(therapy))
	}
	for _, item := range seedInventory {
		snap[globalconst.Inventory] = append(snap[globalconst.Inventory], store.Record(item))
	}
	snap[globalconst.Users] = []store.Record{{
		"name":         "Clinic Administrator",
		"email":        AdminEmail,
		"role":         "admin",
		"passwordHash": string(hash),
	}}
	return snap, nil
}

// CheckPassword reports whether password matches a bcrypt hash stored on a user record.
func CheckPassword(user store.Record, password string) bool {
	hash, _ := user["passwordHash"].(string)
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
