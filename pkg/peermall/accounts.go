package peermall

import (
	"fmt"
	"slices"

	"github.com/peermall/peerstore/pkg/collection"
	"github.com/peermall/peerstore/pkg/core"
	"github.com/peermall/peerstore/pkg/kv"
	"github.com/peermall/peerstore/pkg/notify"
)

// Account roles.
const (
	RoleMember = "member"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// Wallet is the payment identity attached to an account.
type Wallet struct {
	Address string `json:"address" yaml:"address"`
	Network string `json:"network,omitempty" yaml:"network,omitempty"`
}

// Account is a peer account.
type Account struct {
	core.Meta `yaml:",inline"`
	Name      string   `json:"name" yaml:"name"`
	Email     string   `json:"email,omitempty" yaml:"email,omitempty"`
	AvatarURL string   `json:"avatarUrl,omitempty" yaml:"avatarUrl,omitempty"`
	Role      string   `json:"role" yaml:"role"`
	Wallet    *Wallet  `json:"wallet,omitempty" yaml:"wallet,omitempty"`
	Interests []string `json:"interests,omitempty" yaml:"interests,omitempty"`
}

// Clone implements notify.Cloner.
func (a Account) Clone() Account {
	c := a
	if a.Wallet != nil {
		w := *a.Wallet
		c.Wallet = &w
	}
	c.Interests = slices.Clone(a.Interests)
	return c
}

// AccountPatch carries the account fields to insert or overwrite.
// A non-nil Wallet replaces the stored wallet whole.
type AccountPatch struct {
	ID        string    `json:"id,omitempty"`
	Name      *string   `json:"name,omitempty"`
	Email     *string   `json:"email,omitempty"`
	AvatarURL *string   `json:"avatarUrl,omitempty"`
	Role      *string   `json:"role,omitempty"`
	Wallet    *Wallet   `json:"wallet,omitempty"`
	Interests *[]string `json:"interests,omitempty"`
}

// Session is the single-record value stored under core.KeyCurrentAccount.
type Session struct {
	AccountID  string `json:"accountId"`
	SignedInAt string `json:"signedInAt"`
}

// Accounts manages peer accounts and the signed-in session.
type Accounts struct {
	m  *collection.Manager[Account, AccountPatch]
	kv *kv.Facade
}

// NewAccounts creates the reactive accounts manager.
func NewAccounts(facade *kv.Facade, opts ...collection.Option) *Accounts {
	schema := collection.Schema[Account]{
		Key: core.KeyAccounts,
		Defaults: func() Account {
			return Account{Name: "Anonymous peer", Role: RoleMember}
		},
		Validate: validateAccount,
	}
	opts = append(opts, collection.WithReactivity(true))
	return &Accounts{
		m:  collection.New[Account, AccountPatch](facade, schema, opts...),
		kv: facade,
	}
}

func validateAccount(a Account) error {
	if !slices.Contains([]string{RoleMember, RoleSeller, RoleAdmin}, a.Role) {
		return fmt.Errorf("unknown role %q", a.Role)
	}
	if a.Wallet != nil && a.Wallet.Address == "" {
		return fmt.Errorf("wallet address is required")
	}
	return nil
}

// GetAll returns every account.
func (a *Accounts) GetAll() ([]Account, error) {
	return a.m.GetAll()
}

func (a *Accounts) GetByID(id string) (Account, bool, error) {
	return a.m.GetByID(id)
}

// Upsert creates the account, or merges patch into the stored one when
// patch.ID names an existing account.
func (a *Accounts) Upsert(patch AccountPatch) (Account, error) {
	return a.m.Upsert(patch)
}

func (a *Accounts) Delete(id string) error {
	return a.m.Delete(id)
}

// Subscribe delivers the current accounts to cb now and after every change.
func (a *Accounts) Subscribe(cb notify.Callback[Account]) (unsubscribe func()) {
	return a.m.Notifier().Subscribe(cb)
}

// Refresh re-delivers the stored accounts to subscribers.
func (a *Accounts) Refresh() { a.m.Refresh() }

// Close disposes the notifier.
func (a *Accounts) Close() { a.m.Close() }

// Subscribers returns the number of registered callbacks.
func (a *Accounts) Subscribers() int { return a.m.Notifier().Len() }

// SetCurrent records id as the signed-in account.
func (a *Accounts) SetCurrent(id string) error {
	return a.kv.Set(core.KeyCurrentAccount, Session{
		AccountID:  id,
		SignedInAt: core.Timestamp(a.m.Now()),
	})
}

// Current returns the signed-in account. The boolean is false when nobody
// is signed in or the session names an account that no longer exists.
func (a *Accounts) Current() (Account, bool, error) {
	session, ok, err := kv.Load[Session](a.kv, core.KeyCurrentAccount)
	if err != nil || !ok || session.AccountID == "" {
		return Account{}, false, err
	}
	return a.m.GetByID(session.AccountID)
}

// SignOut forgets the signed-in account.
func (a *Accounts) SignOut() error {
	return a.kv.Remove(core.KeyCurrentAccount)
}
