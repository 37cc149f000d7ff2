package accounts

// Entry is one account in accounts.yaml.
type Entry struct {
	Handle   string `yaml:"handle"`   // "alice" or "alice@lemmy.world"
	Instance string `yaml:"instance"` // host the account lives on
	JWT      string `yaml:"jwt"`      // usually "{{LEMMY_ALICE_JWT}}"
}

// File is the root structure of accounts.yaml:
//
//	active: alice@lemmy.world
//	accounts:
//	  - handle: alice
//	    instance: lemmy.world
//	    jwt: "{{LEMMY_ALICE_JWT}}"
type File struct {
	Active   string  `yaml:"active"`
	Accounts []Entry `yaml:"accounts"`
}
