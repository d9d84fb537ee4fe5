package cache

// freezable is the only contract a vault needs from its caches; caches of any
// key/value shape share a vault through it.
type freezable interface {
	freeze()
	unfreeze()
}

// Vault groups the caches of one exchange client so they can be frozen and
// unfrozen together. It borrows its caches and never owns them: each cache
// registers itself at construction and must outlive the vault's use.
type Vault struct {
	caches    []freezable
	allFrozen bool
}

// NewVault creates an empty vault.
func NewVault() *Vault {
	return &Vault{}
}

// Register appends a cache to the freeze group. Called once per cache, from
// New.
func (v *Vault) Register(c freezable) {
	v.caches = append(v.caches, c)
}

// FreezeAll freezes every registered cache. No-op if already frozen.
func (v *Vault) FreezeAll() {
	if v.allFrozen {
		return
	}
	for _, c := range v.caches {
		c.freeze()
	}
	v.allFrozen = true
}

// UnfreezeAll unfreezes every registered cache. No-op if not frozen.
func (v *Vault) UnfreezeAll() {
	if !v.allFrozen {
		return
	}
	for _, c := range v.caches {
		c.unfreeze()
	}
	v.allFrozen = false
}

// Freezer freezes the vault and returns a guard that must be released when
// the decision window ends, typically with defer:
//
//	f := vault.Freezer()
//	defer f.Release()
//
// Release is idempotent; overlapping freeze scopes from independent call
// sites are not supported (the first release unfreezes globally).
func (v *Vault) Freezer() *Freezer {
	v.FreezeAll()
	return &Freezer{vault: v}
}

// Freezer is a scoped unfreeze obligation. The zero value and a released
// Freezer are inert.
type Freezer struct {
	vault *Vault
}

// Release unfreezes the vault. Safe to call more than once.
func (f *Freezer) Release() {
	if f == nil || f.vault == nil {
		return
	}
	f.vault.UnfreezeAll()
	f.vault = nil
}
