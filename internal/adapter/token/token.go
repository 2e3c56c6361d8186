package token

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/holiman/uint256"

	"github.com/oleksiishulzhenko/indexfund/internal/domain"
)

// RoleMinter is granted to the accounts allowed to create shares.
const RoleMinter = "MINTER"

// Token is the fund's share token. Balances and supply live in memory and
// are optionally mirrored to a ShareBalanceRepository. There is no burn or
// transfer path.
type Token struct {
	Repo domain.ShareBalanceRepository

	symbol string
	admin  domain.Account

	mu       sync.RWMutex
	roles    map[string]map[domain.Account]struct{}
	balances map[domain.Account]*uint256.Int
	supply   *uint256.Int
}

// New creates a token administered by admin.
func New(symbol string, admin domain.Account) (*Token, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, errors.New("token symbol must not be empty")
	}
	if err := admin.Validate(); err != nil {
		return nil, fmt.Errorf("token admin: %w", err)
	}
	return &Token{
		symbol:   symbol,
		admin:    admin,
		roles:    make(map[string]map[domain.Account]struct{}),
		balances: make(map[domain.Account]*uint256.Int),
		supply:   uint256.NewInt(0),
	}, nil
}

// Symbol returns the token symbol.
func (t *Token) Symbol() string { return t.symbol }

// Admin returns the account allowed to manage roles.
func (t *Token) Admin() domain.Account { return t.admin }

// GrantRole assigns role to account. Only the admin may grant roles.
// Duplicate grants are ignored.
func (t *Token) GrantRole(caller domain.Account, role string, account domain.Account) error {
	role = strings.TrimSpace(role)
	if role == "" {
		return errors.New("role must not be empty")
	}
	if err := account.Validate(); err != nil {
		return err
	}
	if caller != t.admin {
		return fmt.Errorf("%w: %s cannot grant %s", domain.ErrUnauthorized, caller, role)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	members, ok := t.roles[role]
	if !ok {
		members = make(map[domain.Account]struct{})
		t.roles[role] = members
	}
	members[account] = struct{}{}
	return nil
}

// RevokeRole removes role from account. Only the admin may revoke roles.
func (t *Token) RevokeRole(caller domain.Account, role string, account domain.Account) error {
	if caller != t.admin {
		return fmt.Errorf("%w: %s cannot revoke %s", domain.ErrUnauthorized, caller, role)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.roles[strings.TrimSpace(role)], account)
	return nil
}

// HasRole reports whether account holds role.
func (t *Token) HasRole(role string, account domain.Account) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.roles[strings.TrimSpace(role)][account]
	return ok
}

// RoleMembers returns the holders of role sorted for determinism.
func (t *Token) RoleMembers(role string) []domain.Account {
	t.mu.RLock()
	defer t.mu.RUnlock()
	held := t.roles[strings.TrimSpace(role)]
	members := make([]domain.Account, 0, len(held))
	for acc := range held {
		members = append(members, acc)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	return members
}

// Restore loads persisted balances into an empty token and recomputes the
// supply from them.
func (t *Token) Restore(balances []*domain.ShareBalance) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.balances) > 0 || !t.supply.IsZero() {
		return errors.New("token already holds balances")
	}

	restored := make(map[domain.Account]*uint256.Int, len(balances))
	supply := uint256.NewInt(0)
	for _, b := range balances {
		if err := b.Account.Validate(); err != nil {
			return err
		}
		if b.Balance == nil {
			return fmt.Errorf("balance of %s must be set", b.Account)
		}
		if _, dup := restored[b.Account]; dup {
			return fmt.Errorf("duplicate balance for %s", b.Account)
		}
		next, err := domain.CheckedAdd(supply, b.Balance)
		if err != nil {
			return err
		}
		supply = next
		restored[b.Account] = b.Balance.Clone()
	}

	t.balances = restored
	t.supply = supply
	return nil
}

// BalanceOf returns the share balance of account.
func (t *Token) BalanceOf(account domain.Account) *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if bal, ok := t.balances[account]; ok {
		return bal.Clone()
	}
	return uint256.NewInt(0)
}

// TotalSupply returns the number of shares in existence.
func (t *Token) TotalSupply(context.Context) (*uint256.Int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.supply.Clone(), nil
}

// Mint creates amount shares for to on behalf of caller.
// Logic:
//  1. caller must hold RoleMinter
//  2. new balance and supply are checked for overflow
//  3. the balance is persisted through Repo (joining any transaction in ctx)
//  4. the in-memory state changes once that transaction commits
func (t *Token) Mint(ctx context.Context, caller, to domain.Account, amount *uint256.Int) error {
	if !t.HasRole(RoleMinter, caller) {
		return fmt.Errorf("%w: %s is not a minter", domain.ErrUnauthorized, caller)
	}
	if err := to.Validate(); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return errors.New("mint amount must be positive")
	}

	t.mu.RLock()
	balance := t.balances[to]
	if balance == nil {
		balance = uint256.NewInt(0)
	}
	nextBalance, err := domain.CheckedAdd(balance, amount)
	if err == nil {
		_, err = domain.CheckedAdd(t.supply, amount)
	}
	t.mu.RUnlock()
	if err != nil {
		return err
	}

	if t.Repo != nil {
		if err := t.Repo.Save(ctx, &domain.ShareBalance{Account: to, Balance: nextBalance}); err != nil {
			return fmt.Errorf("failed to save share balance: %w", err)
		}
	}

	minted := amount.Clone()
	domain.AfterCommit(ctx, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		current := t.balances[to]
		if current == nil {
			current = uint256.NewInt(0)
		}
		t.balances[to] = new(uint256.Int).Add(current, minted)
		t.supply = new(uint256.Int).Add(t.supply, minted)
	})
	return nil
}

// Minter binds caller to the token, giving the deposit engine a
// domain.ShareToken that mints with caller's authority.
func (t *Token) Minter(caller domain.Account) domain.ShareToken {
	return &minter{token: t, caller: caller}
}

type minter struct {
	token  *Token
	caller domain.Account
}

func (m *minter) Mint(ctx context.Context, to domain.Account, amount *uint256.Int) error {
	return m.token.Mint(ctx, m.caller, to, amount)
}

func (m *minter) TotalSupply(ctx context.Context) (*uint256.Int, error) {
	return m.token.TotalSupply(ctx)
}
