package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tier-rewards-go/internal/admin"
	"tier-rewards-go/internal/auth"
	"tier-rewards-go/internal/events"
	"tier-rewards-go/internal/ledger"
	"tier-rewards-go/internal/promo"
	"tier-rewards-go/internal/referral"
	"tier-rewards-go/internal/rewards"
	"tier-rewards-go/internal/store"
	"tier-rewards-go/internal/tiers"
	"tier-rewards-go/internal/workflow"

	"github.com/gin-gonic/gin"
)

const masterSecret = "master-secret"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router  *gin.Engine
	records *store.MemoryStore
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	records := store.NewMemoryStore()
	catalog := tiers.DefaultCatalog()
	publisher := &events.Recorder{}
	l := ledger.New(records, catalog)
	w := workflow.New(l, referral.NewDistributor(l, publisher), nil, publisher)
	tokens := auth.NewTokenManager("test-secret", "tier-rewards-test", time.Hour)

	srv := NewServer(Deps{
		Ledger:   l,
		Accounts: auth.NewService(records, tokens, catalog, masterSecret),
		Rewards:  rewards.New(l, w, publisher),
		Workflow: w,
		Promo:    promo.New(l, publisher, promo.WithDraw(func(int) int { return 1 })),
		Admin:    admin.New(l, w),
		BaseURL:  "https://rewards.example.com",
	})
	return &testServer{router: srv.Router(), records: records}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode response %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func decode(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

type grantBody struct {
	Token string `json:"token"`
	User  struct {
		Id           string `json:"id"`
		ReferralCode string `json:"referral_code"`
		IsAdmin      bool   `json:"is_admin"`
	} `json:"user"`
}

func (ts *testServer) register(t *testing.T, username, referralCode string) grantBody {
	t.Helper()
	_, env := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": username, "password": "pw1234", "confirm": "pw1234", "referral_code": referralCode,
	})
	if env.Code != CodeSuccess {
		t.Fatalf("register %s: %d %s", username, env.Code, env.Message)
	}
	var g grantBody
	decode(t, env, &g)
	return g
}

func (ts *testServer) masterToken(t *testing.T) string {
	t.Helper()
	_, env := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "root", "password": masterSecret})
	if env.Code != CodeSuccess {
		t.Fatalf("master login: %d %s", env.Code, env.Message)
	}
	var g grantBody
	decode(t, env, &g)
	return g.Token
}

func TestHealth(t *testing.T) {
	ts := setupServer(t)
	status, env := ts.do(t, http.MethodGet, "/health", "", nil)
	if status != http.StatusOK || env.Code != CodeSuccess {
		t.Fatalf("health: %d %+v", status, env)
	}
}

func TestAuthRequired(t *testing.T) {
	ts := setupServer(t)
	status, env := ts.do(t, http.MethodGet, "/api/v1/dashboard", "", nil)
	if status != http.StatusUnauthorized || env.Code != CodeUnauthorized {
		t.Errorf("missing token: %d %+v", status, env)
	}
	status, _ = ts.do(t, http.MethodGet, "/api/v1/dashboard", "bogus", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("bad token: status %d", status)
	}

	member := ts.register(t, "alice", "")
	status, env = ts.do(t, http.MethodGet, "/api/v1/admin/users", member.Token, nil)
	if status != http.StatusForbidden || env.Code != CodeForbidden {
		t.Errorf("member on admin route: %d %+v", status, env)
	}
}

func TestRegisterErrors(t *testing.T) {
	ts := setupServer(t)
	ts.register(t, "alice", "")

	tests := []struct {
		name string
		body gin.H
		want int
	}{
		{"duplicate", gin.H{"username": "ALICE", "password": "a1", "confirm": "a1"}, CodeUsernameTaken},
		{"unknown referral", gin.H{"username": "bob", "password": "a1", "confirm": "a1", "referral_code": "ZZZZZZ"}, CodeInvalidReferral},
		{"mismatch", gin.H{"username": "bob", "password": "a1", "confirm": "a2"}, CodeParamError},
		{"missing fields", gin.H{"username": "bob"}, CodeParamError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, env := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", tt.body)
			if env.Code != tt.want {
				t.Errorf("code %d (%s), want %d", env.Code, env.Message, tt.want)
			}
		})
	}
}

func TestDepositApprovalFlow(t *testing.T) {
	ts := setupServer(t)
	parent := ts.register(t, "parent", "")
	child := ts.register(t, "child", parent.User.ReferralCode)
	adminToken := ts.masterToken(t)

	_, env := ts.do(t, http.MethodPost, "/api/v1/deposits", child.Token, gin.H{"amount": "100"})
	if env.Code != CodeSuccess {
		t.Fatalf("deposit: %d %s", env.Code, env.Message)
	}
	var tx struct {
		Id     string `json:"id"`
		Status string `json:"status"`
	}
	decode(t, env, &tx)
	if tx.Status != "PENDING" {
		t.Errorf("status = %s", tx.Status)
	}

	_, env = ts.do(t, http.MethodPost, "/api/v1/admin/transactions/"+tx.Id+"/resolve", adminToken, gin.H{"status": "APPROVED"})
	if env.Code != CodeSuccess {
		t.Fatalf("resolve: %d %s", env.Code, env.Message)
	}
	_, env = ts.do(t, http.MethodPost, "/api/v1/admin/transactions/"+tx.Id+"/resolve", adminToken, gin.H{"status": "REJECTED"})
	if env.Code != CodeAlreadyResolved {
		t.Errorf("second resolve code %d, want %d", env.Code, CodeAlreadyResolved)
	}

	ctx := context.Background()
	c, _ := ts.records.GetUserById(ctx, child.User.Id)
	p, _ := ts.records.GetUserById(ctx, parent.User.Id)
	if c.Balance.String() != "100" || c.HighestTier() != 3 {
		t.Errorf("child balance %s tiers %v", c.Balance, c.UnlockedTiers)
	}
	if p.WithdrawableProfit.String() != "12" {
		t.Errorf("parent commission %s, want 12", p.WithdrawableProfit)
	}

	_, env = ts.do(t, http.MethodGet, "/api/v1/dashboard", child.Token, nil)
	var summary struct {
		EligibleTiers []int  `json:"eligible_tiers"`
		Payout        string `json:"payout"`
		HasPending    bool   `json:"has_pending"`
		CanSpin       bool   `json:"can_spin"`
	}
	decode(t, env, &summary)
	// All three tiers were unlocked today.
	if len(summary.EligibleTiers) != 3 || summary.HasPending || !summary.CanSpin {
		t.Errorf("unexpected summary %+v", summary)
	}

	_, env = ts.do(t, http.MethodPost, "/api/v1/claim", child.Token, nil)
	if env.Code != CodeSuccess {
		t.Fatalf("claim: %d %s", env.Code, env.Message)
	}
	_, env = ts.do(t, http.MethodPost, "/api/v1/claim", child.Token, nil)
	if env.Code != CodeNothingToClaim {
		t.Errorf("second claim code %d", env.Code)
	}

	_, env = ts.do(t, http.MethodGet, "/api/v1/referrals", parent.Token, nil)
	var network struct {
		Link   string `json:"link"`
		Levels []struct {
			Level int `json:"level"`
			Count int `json:"count"`
		} `json:"levels"`
	}
	decode(t, env, &network)
	if network.Link != "https://rewards.example.com/#register?ref="+parent.User.ReferralCode {
		t.Errorf("link = %s", network.Link)
	}
	if len(network.Levels) != 3 || network.Levels[0].Count != 1 {
		t.Errorf("unexpected levels %+v", network.Levels)
	}
}

func TestWithdrawalAndSpin(t *testing.T) {
	ts := setupServer(t)
	member := ts.register(t, "alice", "")
	adminToken := ts.masterToken(t)

	_, env := ts.do(t, http.MethodPost, "/api/v1/spin", member.Token, nil)
	if env.Code != CodeSuccess {
		t.Fatalf("spin: %d %s", env.Code, env.Message)
	}
	_, env = ts.do(t, http.MethodPost, "/api/v1/spin", member.Token, nil)
	if env.Code != CodeAlreadySpun {
		t.Errorf("second spin code %d", env.Code)
	}

	_, env = ts.do(t, http.MethodPost, "/api/v1/admin/users/"+member.User.Id+"/withdrawable", adminToken, gin.H{"delta": "20"})
	if env.Code != CodeSuccess {
		t.Fatalf("adjust withdrawable: %d %s", env.Code, env.Message)
	}

	tests := []struct {
		name string
		body gin.H
		want int
	}{
		{"below minimum", gin.H{"amount": "9", "network": "BEP-20", "destination_address": "0x1234567890ab"}, CodeBelowMinimum},
		{"insufficient", gin.H{"amount": "50", "network": "BEP-20", "destination_address": "0x1234567890ab"}, CodeInsufficientFunds},
		{"short address", gin.H{"amount": "10", "network": "BEP-20", "destination_address": "0x12"}, CodeParamError},
		{"unknown network", gin.H{"amount": "10", "network": "SOL", "destination_address": "0x1234567890ab"}, CodeParamError},
		{"valid", gin.H{"amount": "15", "network": "TRC-20", "destination_address": "T1234567890abcdef"}, CodeSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, env := ts.do(t, http.MethodPost, "/api/v1/withdrawals", member.Token, tt.body)
			if env.Code != tt.want {
				t.Errorf("code %d (%s), want %d", env.Code, env.Message, tt.want)
			}
		})
	}

	u, _ := ts.records.GetUserById(context.Background(), member.User.Id)
	// 1 from the spin plus 20 granted, minus the 15 reserved.
	if u.WithdrawableProfit.String() != "6" {
		t.Errorf("withdrawable = %s, want 6", u.WithdrawableProfit)
	}

	_, env = ts.do(t, http.MethodGet, "/api/v1/transactions", member.Token, nil)
	var txs []struct {
		Kind   string `json:"kind"`
		Status string `json:"status"`
	}
	decode(t, env, &txs)
	if len(txs) != 1 || txs[0].Kind != "WITHDRAW" || txs[0].Status != "PENDING" {
		t.Errorf("unexpected transactions %+v", txs)
	}
}

func TestMeRefreshesSnapshot(t *testing.T) {
	ts := setupServer(t)
	member := ts.register(t, "alice", "")

	_, env := ts.do(t, http.MethodGet, "/api/v1/me", member.Token, nil)
	var me struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
		Role         string `json:"role"`
		ReferralLink string `json:"referral_link"`
	}
	decode(t, env, &me)
	if me.User.Username != "alice" || me.Role != auth.RoleUser || me.ReferralLink == "" {
		t.Errorf("unexpected me %+v", me)
	}
}
