package typesystem

import "fmt"

// StorageCompat lists the nominal storage types an adapter is allowed to
// ride on. A column tagged `col TYPE AS Name` must declare TYPE as one of
// these or schema evolution rejects the adapter reference.
type StorageCompat []string

// adapterDef pairs an Adapter's import metadata with the storage types it
// may be attached to.
type adapterDef struct {
	adapter Adapter
	storage StorageCompat
}

// registry is the built-in adapter catalog consulted by AS <TypeName>
// and USING <AdapterName> clauses. It never influences unification: the
// underlying Nominal storage type still drives type-checking, the
// adapter is carried purely as IR metadata for downstream codegen.
var registry = map[string]adapterDef{
	"UUID": {
		adapter: Adapter{Name: "UUID", GoType: "uuid.UUID", Import: "github.com/google/uuid", Package: "uuid"},
		storage: StorageCompat{Text, Blob},
	},
	"DECIMAL": {
		adapter: Adapter{Name: "Decimal", GoType: "decimal.Decimal", Import: "github.com/shopspring/decimal", Package: "decimal"},
		storage: StorageCompat{Text, "NUMERIC"},
	},
	"NUMERIC": {
		adapter: Adapter{Name: "Numeric", GoType: "pgtype.Numeric", Import: "github.com/jackc/pgx/v5/pgtype", Package: "pgtype"},
		storage: StorageCompat{"NUMERIC", Text},
	},
	"PGNUMERIC": {
		adapter: Adapter{Name: "PgNumeric", GoType: "pgtype.Numeric", Import: "github.com/jackc/pgx/v5/pgtype", Package: "pgtype"},
		storage: StorageCompat{"NUMERIC", Text},
	},
	"BOOL": {
		adapter: Adapter{Name: "Bool", GoType: "bool"},
		storage: StorageCompat{Integer},
	},
}

// LookupAdapter resolves an adapter by the name used in a USING clause or
// (for Bool) implicitly by AS BOOL / TRUE-FALSE literal typing. The lookup
// is case-insensitive to match SQL identifier folding.
func LookupAdapter(name string) (Adapter, bool) {
	def, ok := registry[upperASCII(name)]
	if !ok {
		return Adapter{}, false
	}
	return def.adapter, true
}

// ValidateAdapterStorage reports an error if adapter is attached to a
// column declared with a storage type the registry does not permit.
func ValidateAdapterStorage(adapterName, storageType string) error {
	def, ok := registry[upperASCII(adapterName)]
	if !ok {
		return fmt.Errorf("unknown adapter %q", adapterName)
	}
	for _, s := range def.storage {
		if upperASCII(s) == upperASCII(storageType) {
			return nil
		}
	}
	return fmt.Errorf("adapter %q cannot be attached to storage type %s", adapterName, storageType)
}

func upperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
