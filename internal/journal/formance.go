package journal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tier-rewards-go/internal/models"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Formance mirrors movements into a Formance Stack ledger. Each user has a
// locked account (invested capital) and a profit account (withdrawable);
// their sum is the user's balance.
type Formance struct {
	client    *v3.Formance
	ledger    string
	asset     string
	precision int32
}

// NewFormance connects to the stack and creates the ledger if it doesn't already exist.
func NewFormance(ctx context.Context, cfg models.FormanceConfig) (*Formance, error) {
	if cfg.StackURL == "" || cfg.ClientId == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("formance config requires StackURL, ClientId, and ClientSecret")
	}
	if cfg.LedgerName == "" {
		cfg.LedgerName = "tier-rewards"
	}
	if cfg.Asset == "" {
		cfg.Asset = "USDT/6"
	}
	precision, err := assetPrecision(cfg.Asset)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Connecting to Formance Stack",
		zap.String("stack_url", cfg.StackURL),
		zap.String("ledger", cfg.LedgerName))

	client := v3.New(
		v3.WithServerURL(cfg.StackURL),
		v3.WithSecurity(shared.Security{
			ClientID:     v3.Pointer(cfg.ClientId),
			ClientSecret: v3.Pointer(cfg.ClientSecret),
		}),
	)

	f := &Formance{client: client, ledger: cfg.LedgerName, asset: cfg.Asset, precision: precision}
	if err := f.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger exists: %w", err)
	}
	return f, nil
}

func (f *Formance) ensureLedger(ctx context.Context) error {
	_, err := f.client.Ledger.V2.CreateLedger(ctx, operations.V2CreateLedgerRequest{
		Ledger: f.ledger,
		V2CreateLedgerRequest: shared.V2CreateLedgerRequest{
			Metadata: map[string]string{"application": "tier-rewards"},
		},
	})
	if err != nil {
		var apiErr *sdkerrors.V2ErrorResponse
		if errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumLedgerAlreadyExists {
			zap.L().Info("Ledger already exists", zap.String("ledger", f.ledger))
			return nil
		}
		return err
	}
	zap.L().Info("Ledger created", zap.String("ledger", f.ledger))
	return nil
}

// Record posts m as one Formance transaction. A duplicate reference means
// the movement was already mirrored and is not an error.
func (f *Formance) Record(ctx context.Context, m Movement) error {
	if m.IsZero() {
		return nil
	}
	script, vars := buildScript(m, f.asset, f.precision)

	_, err := f.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger: f.ledger,
		V2PostTransaction: shared.V2PostTransaction{
			Reference: v3.Pointer(m.Reference),
			Script: &shared.V2PostTransactionScript{
				Plain: script,
				Vars:  vars,
			},
		},
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Debug("Movement already mirrored", zap.String("reference", m.Reference))
			return nil
		}
		return fmt.Errorf("error posting movement %s: %w", m.Reference, err)
	}

	zap.L().Debug("Movement mirrored in Formance",
		zap.String("reference", m.Reference),
		zap.String("kind", string(m.Kind)),
		zap.String("user_id", m.UserId))
	return nil
}

// buildScript renders the Numscript for the non-zero legs of m. Credits come
// from the platform account for the movement kind; debits go back to it.
func buildScript(m Movement, asset string, precision int32) (string, map[string]string) {
	vars := map[string]string{
		"asset":          asset,
		"user_id":        m.UserId,
		"kind":           string(m.Kind),
		"transaction_id": m.TransactionId,
	}

	var b strings.Builder
	b.WriteString("vars {\n  asset $asset\n  account $user_id\n  account $kind\n  string $transaction_id\n")
	var legs strings.Builder

	addLeg := func(name, bucket string, delta decimal.Decimal) {
		if delta.IsZero() {
			return
		}
		fmt.Fprintf(&b, "  number $%s\n", name)
		vars[name] = delta.Abs().Shift(precision).BigInt().String()
		if delta.IsPositive() {
			fmt.Fprintf(&legs, "\nsend [$asset $%s] (\n  source = @platform:$kind allowing unbounded overdraft\n  destination = @users:$user_id:%s\n)\n", name, bucket)
		} else {
			fmt.Fprintf(&legs, "\nsend [$asset $%s] (\n  source = @users:$user_id:%s allowing unbounded overdraft\n  destination = @platform:$kind\n)\n", name, bucket)
		}
	}

	addLeg("locked_amount", "locked", m.Locked())
	addLeg("profit_amount", "profit", m.WithdrawableDelta)

	b.WriteString("}\n")
	b.WriteString(legs.String())
	b.WriteString("\nset_tx_meta(\"event_type\", $kind)\nset_tx_meta(\"transaction_id\", $transaction_id)\n")
	return b.String(), vars
}

// assetPrecision parses the precision suffix of UMN notation, e.g. "USDT/6".
func assetPrecision(asset string) (int32, error) {
	i := strings.LastIndex(asset, "/")
	if i < 0 {
		return 0, nil
	}
	p, err := strconv.Atoi(asset[i+1:])
	if err != nil {
		return 0, fmt.Errorf("invalid asset notation %q: %w", asset, err)
	}
	return int32(p), nil
}

// isConflictError checks whether a Formance SDK error is a CONFLICT (duplicate reference).
func isConflictError(err error) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumConflict
}
