package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/domain/entities"
	"storefront/internal/domain/repositories"
	"storefront/internal/gateway"
	"storefront/internal/infrastructure/logger"
	"storefront/internal/infrastructure/metrics"
)

// PaymentSettings is the gateway configuration the payment flow runs with.
type PaymentSettings struct {
	TestMode          bool
	SecretKey         string
	ProductCode       string
	FormURL           string
	SuccessURL        string
	FailureURL        string
	ClientURL         string
	TransactionPrefix string
	// MaxVerificationAttempts stops automatic re-verification; 0 means no cap.
	MaxVerificationAttempts int
}

type StatusChecker interface {
	Check(ctx context.Context, q gateway.StatusQuery) (*gateway.StatusResult, error)
}

// StatusCache holds definitive status lookups keyed by transaction id.
type StatusCache interface {
	Get(ctx context.Context, transactionID string) (*gateway.StatusResult, bool)
	Put(ctx context.Context, transactionID string, result *gateway.StatusResult)
}

type PaymentUseCase struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	checker     StatusChecker
	cache       StatusCache
	publisher   EventPublisher
	metrics     *metrics.Registry
	logger      *logger.Logger
	settings    PaymentSettings
	signer      *gateway.Signer
	signerErr   error
	now         func() time.Time
}

func NewPaymentUseCase(
	orderRepo repositories.OrderRepository,
	productRepo repositories.ProductRepository,
	checker StatusChecker,
	settings PaymentSettings,
	logger *logger.Logger,
) *PaymentUseCase {
	if settings.TransactionPrefix == "" {
		settings.TransactionPrefix = "storefront"
	}
	signer, err := gateway.NewSigner(settings.SecretKey)

	return &PaymentUseCase{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		checker:     checker,
		logger:      logger,
		settings:    settings,
		signer:      signer,
		signerErr:   err,
		now:         time.Now,
	}
}

func (uc *PaymentUseCase) SetCache(cache StatusCache)            { uc.cache = cache }
func (uc *PaymentUseCase) SetPublisher(publisher EventPublisher) { uc.publisher = publisher }
func (uc *PaymentUseCase) SetMetrics(m *metrics.Registry)        { uc.metrics = m }

func (uc *PaymentUseCase) TestMode() bool { return uc.settings.TestMode }

// liveSigner returns the signer once everything a live payment needs is set.
func (uc *PaymentUseCase) liveSigner() (*gateway.Signer, error) {
	if uc.signerErr != nil {
		return nil, uc.signerErr
	}

	var missing []string
	if uc.settings.FormURL == "" {
		missing = append(missing, "form URL")
	}
	if uc.settings.SuccessURL == "" || uc.settings.FailureURL == "" {
		missing = append(missing, "callback URLs")
	}
	if uc.settings.ProductCode == "" {
		missing = append(missing, "product code")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s not set", gateway.ErrConfiguration, strings.Join(missing, ", "))
	}
	return uc.signer, nil
}

// InitiatePayment assigns a fresh transaction id to a pending order and
// returns what the buyer needs to reach the gateway.
func (uc *PaymentUseCase) InitiatePayment(ctx context.Context, orderID string, amount decimal.Decimal) (entities.PaymentRequest, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	order, err := uc.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if err := payable(order); err != nil {
		return nil, err
	}
	if !amount.Equal(order.Total) {
		return nil, fmt.Errorf("%w: expected %s", ErrAmountMismatch, gateway.FormatAmount(order.Total))
	}

	productIDs, _ := order.Quantities()
	for _, productID := range productIDs {
		product, err := uc.productRepo.GetByID(ctx, productID)
		if err != nil {
			if errors.Is(err, repositories.ErrProductNotFound) {
				return nil, fmt.Errorf("%w: %q", ErrProductUnavailable, itemName(order, productID))
			}
			return nil, fmt.Errorf("failed to get product: %w", err)
		}
		if !product.IsActive {
			return nil, fmt.Errorf("%w: %q", ErrProductUnavailable, product.Name)
		}
	}

	var signer *gateway.Signer
	if !uc.settings.TestMode {
		signer, err = uc.liveSigner()
		if err != nil {
			uc.logger.Error("Payment gateway misconfigured", "order_id", orderID, "error", err)
			return nil, err
		}
	}

	transactionID := fmt.Sprintf("%s-%s-%d", uc.settings.TransactionPrefix, order.ID, uc.now().UnixNano())
	if err := uc.orderRepo.AssignTransaction(ctx, order.ID, transactionID); err != nil {
		if errors.Is(err, repositories.ErrPaymentNotPending) {
			if current, gerr := uc.orderRepo.GetByID(ctx, order.ID); gerr == nil {
				if perr := payable(current); perr != nil {
					return nil, perr
				}
			}
		}
		return nil, fmt.Errorf("failed to store transaction: %w", err)
	}

	total := gateway.FormatAmount(order.Total)
	var request entities.PaymentRequest
	if uc.settings.TestMode {
		query := url.Values{}
		query.Set("orderId", order.ID)
		query.Set("transactionUUID", transactionID)
		query.Set("amount", total)
		request = &entities.TestRedirect{
			URL:           strings.TrimRight(uc.settings.ClientURL, "/") + "/payment/test?" + query.Encode(),
			OrderID:       order.ID,
			TransactionID: transactionID,
			Amount:        total,
		}
	} else {
		request = &entities.GatewayForm{
			URL:                   uc.settings.FormURL,
			Amount:                total,
			TaxAmount:             "0",
			TotalAmount:           total,
			TransactionID:         transactionID,
			ProductCode:           uc.settings.ProductCode,
			ProductServiceCharge:  "0",
			ProductDeliveryCharge: "0",
			SuccessURL:            uc.settings.SuccessURL,
			FailureURL:            uc.settings.FailureURL,
			SignedFieldNames:      strings.Join(gateway.PaymentSignedFieldNames, ","),
			Signature:             signer.SignPayment(total, transactionID, uc.settings.ProductCode),
		}
	}

	uc.logger.Info("Payment initiated",
		"order_id", order.ID,
		"transaction_id", transactionID,
		"mode", request.Mode(),
		"amount", total)
	uc.metrics.PaymentInitiated(string(request.Mode()))

	return request, nil
}

func payable(order *entities.Order) error {
	switch order.PaymentStatus {
	case entities.PaymentPaid:
		return ErrAlreadyPaid
	case entities.PaymentFailed:
		return ErrPaymentClosed
	}
	return nil
}

func itemName(order *entities.Order, productID string) string {
	for _, item := range order.Items {
		if item.ProductID == productID && item.Name != "" {
			return item.Name
		}
	}
	return productID
}

// CompleteTestPayment stands in for the gateway when test mode is on.
// Completing an already paid order again is a no-op.
func (uc *PaymentUseCase) CompleteTestPayment(ctx context.Context, orderID, transactionID string) (*entities.Order, error) {
	if !uc.settings.TestMode {
		return nil, ErrTestModeDisabled
	}
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	if transactionID == "" {
		return nil, ErrInvalidTransactionID
	}

	order, err := uc.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order.TransactionID == "" || order.TransactionID != transactionID {
		uc.logger.Warn("Test completion with foreign transaction id",
			"order_id", orderID,
			"transaction_id", transactionID)
		return nil, ErrTransactionMismatch
	}

	switch order.PaymentStatus {
	case entities.PaymentPaid:
		return order, nil
	case entities.PaymentFailed:
		return nil, ErrPaymentClosed
	}

	return uc.finalize(ctx, order.ID, transactionID, "")
}

// finalize moves payment to paid and applies stock. Only the caller whose
// compare-and-swap succeeds touches stock; everyone else gets the order as
// it stands.
func (uc *PaymentUseCase) finalize(ctx context.Context, orderID, transactionID, gatewayRef string) (*entities.Order, error) {
	paid, err := uc.orderRepo.MarkPaid(ctx, orderID, transactionID, gatewayRef, uc.now())
	if err != nil {
		if !errors.Is(err, repositories.ErrPaymentNotPending) {
			return nil, err
		}

		current, gerr := uc.orderRepo.GetByID(ctx, orderID)
		if gerr != nil {
			return nil, fmt.Errorf("failed to get order: %w", gerr)
		}
		if current.PaymentStatus == entities.PaymentPaid {
			uc.logger.Info("Payment already finalized", "order_id", orderID, "transaction_id", transactionID)
			return current, nil
		}
		return nil, ErrPaymentClosed
	}

	uc.logger.Info("Payment finalized",
		"order_id", paid.ID,
		"transaction_id", transactionID,
		"gateway_ref", gatewayRef)
	uc.metrics.PaymentFinalized()
	publishAsync(uc.publisher, uc.logger, EventOrderPaid, paid)

	if err := uc.applyStock(ctx, paid); err != nil {
		// Payment is recorded; the reconciler resumes stock application.
		uc.logger.Error("Stock application incomplete",
			"order_id", paid.ID,
			"error", err)
	}

	return paid, nil
}

// applyStock takes each product's aggregated quantity off stock, at most
// once per order, then flags the order. Products without enough stock are
// recorded as backordered rather than driven negative.
func (uc *PaymentUseCase) applyStock(ctx context.Context, order *entities.Order) error {
	productIDs, quantities := order.Quantities()

	var backordered []string
	for _, productID := range productIDs {
		applied, err := uc.productRepo.DecrementStock(ctx, productID, quantities[productID], order.ID)
		switch {
		case err == nil:
			if !applied {
				uc.logger.Debug("Stock already committed", "order_id", order.ID, "product_id", productID)
			}
		case errors.Is(err, repositories.ErrInsufficientStock), errors.Is(err, repositories.ErrProductNotFound):
			uc.logger.Warn("Product backordered",
				"order_id", order.ID,
				"product_id", productID,
				"quantity", quantities[productID],
				"reason", err)
			uc.metrics.Backorder()
			backordered = append(backordered, productID)
		default:
			return fmt.Errorf("failed to decrement stock for %s: %w", productID, err)
		}
	}

	if err := uc.orderRepo.MarkStockApplied(ctx, order.ID, backordered); err != nil {
		return fmt.Errorf("failed to mark stock applied: %w", err)
	}

	order.StockApplied = true
	order.Backordered = backordered
	return nil
}

func (uc *PaymentUseCase) reject(reason string, err error, args ...interface{}) entities.Settlement {
	uc.logger.Warn("Gateway callback rejected", append([]interface{}{"reason", reason, "error", err}, args...)...)
	uc.metrics.CallbackRejected(reason)
	return entities.Settlement{Outcome: entities.OutcomeFailure}
}

// HandleGatewaySuccess processes the gateway's success redirect. The callback
// only names the transaction; settlement is decided by the status lookup.
func (uc *PaymentUseCase) HandleGatewaySuccess(ctx context.Context, data string) entities.Settlement {
	cb, err := gateway.DecodeCallback(data)
	if err != nil {
		return uc.reject("malformed", err)
	}
	if err := cb.Validate(); err != nil {
		return uc.reject("missing_fields", err, "transaction_id", cb.TransactionID)
	}
	if !cb.Complete() {
		return uc.reject("status", fmt.Errorf("status %q", cb.Status), "transaction_id", cb.TransactionID)
	}
	if uc.signerErr != nil {
		uc.logger.Error("Cannot verify callback, payment gateway misconfigured", "error", uc.signerErr)
		return uc.reject("configuration", uc.signerErr)
	}
	if err := uc.signer.VerifyCallback(cb); err != nil {
		return uc.reject("signature", err, "transaction_id", cb.TransactionID)
	}

	order, err := uc.orderRepo.GetByTransactionID(ctx, cb.TransactionID)
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			return uc.reject("unknown_transaction", err, "transaction_id", cb.TransactionID)
		}
		uc.logger.Error("Failed to load order for callback", "transaction_id", cb.TransactionID, "error", err)
		return entities.Settlement{Outcome: entities.OutcomeFailure}
	}

	switch order.PaymentStatus {
	case entities.PaymentPaid:
		return entities.Settlement{Outcome: entities.OutcomeSuccess, OrderID: order.ID}
	case entities.PaymentFailed:
		return uc.reject("payment_closed", ErrPaymentClosed, "order_id", order.ID)
	}

	amount, err := gateway.ParseAmount(cb.TotalAmount)
	if err != nil || !amount.Equal(order.Total) {
		return uc.reject("amount", fmt.Errorf("callback amount %q, order total %s", cb.TotalAmount, order.Total), "order_id", order.ID)
	}
	if cb.ProductCode != "" && cb.ProductCode != uc.settings.ProductCode {
		return uc.reject("product_code", fmt.Errorf("product code %q", cb.ProductCode), "order_id", order.ID)
	}

	return uc.settle(ctx, order, cb.TransactionCode)
}

// settle asks the gateway for the authoritative status of the order's
// current transaction and applies it.
func (uc *PaymentUseCase) settle(ctx context.Context, order *entities.Order, gatewayRef string) entities.Settlement {
	result, err := uc.verify(ctx, order)
	if err != nil {
		if errors.Is(err, gateway.ErrConfiguration) {
			uc.logger.Error("Cannot verify payment, status lookup misconfigured", "order_id", order.ID, "error", err)
		}
		uc.recordUnverified(ctx, order, gatewayRef, err.Error())
		return entities.Settlement{Outcome: entities.OutcomePending, OrderID: order.ID}
	}

	status := result.Status
	switch {
	case status.Settled():
		if result.TotalAmount != "" {
			reported, perr := gateway.ParseAmount(result.TotalAmount.String())
			if perr != nil || !reported.Equal(order.Total) {
				return uc.reject("verified_amount",
					fmt.Errorf("gateway reports %q, order total %s", result.TotalAmount, order.Total),
					"order_id", order.ID)
			}
		}
		if gatewayRef == "" {
			gatewayRef = result.RefID
		}
		paid, err := uc.finalize(ctx, order.ID, order.TransactionID, gatewayRef)
		if err != nil {
			if errors.Is(err, ErrPaymentClosed) || errors.Is(err, repositories.ErrTransactionMismatch) {
				return uc.reject("stale_transaction", err, "order_id", order.ID)
			}
			uc.logger.Error("Failed to finalize verified payment", "order_id", order.ID, "error", err)
			uc.recordUnverified(ctx, order, gatewayRef, err.Error())
			return entities.Settlement{Outcome: entities.OutcomePending, OrderID: order.ID}
		}
		return entities.Settlement{Outcome: entities.OutcomeSuccess, OrderID: paid.ID}

	case status.Undecided():
		uc.recordUnverified(ctx, order, gatewayRef, "gateway reports "+string(status))
		return entities.Settlement{Outcome: entities.OutcomePending, OrderID: order.ID}

	case status.Rejected():
		uc.markFailed(ctx, order, "gateway reports "+string(status))
		return entities.Settlement{Outcome: entities.OutcomeFailure}
	}

	uc.logger.Warn("Unexpected gateway status, leaving order untouched",
		"order_id", order.ID,
		"status", status)
	return entities.Settlement{Outcome: entities.OutcomeFailure}
}

func (uc *PaymentUseCase) verify(ctx context.Context, order *entities.Order) (*gateway.StatusResult, error) {
	if uc.cache != nil {
		if result, ok := uc.cache.Get(ctx, order.TransactionID); ok {
			return result, nil
		}
	}

	started := time.Now()
	result, err := uc.checker.Check(ctx, gateway.StatusQuery{
		ProductCode:   uc.settings.ProductCode,
		TotalAmount:   gateway.FormatAmount(order.Total),
		TransactionID: order.TransactionID,
	})
	uc.metrics.ObserveStatusCheck(started)
	if err != nil {
		uc.metrics.VerificationError()
		return nil, err
	}
	if result.TransactionID != "" && result.TransactionID != order.TransactionID {
		uc.metrics.VerificationError()
		return nil, fmt.Errorf("%w: answer for %s", gateway.ErrStatusUnavailable, result.TransactionID)
	}

	if uc.cache != nil && (result.Status.Settled() || result.Status.Rejected()) {
		uc.cache.Put(ctx, order.TransactionID, result)
	}
	return result, nil
}

func (uc *PaymentUseCase) recordUnverified(ctx context.Context, order *entities.Order, gatewayRef, reason string) {
	err := uc.orderRepo.RecordVerificationFailure(ctx, order.ID, order.TransactionID, gatewayRef, reason)
	if err != nil {
		uc.logger.Warn("Failed to record verification failure", "order_id", order.ID, "error", err)
		return
	}

	attempts := order.VerificationAttempts + 1
	if limit := uc.settings.MaxVerificationAttempts; limit > 0 && attempts >= limit {
		uc.logger.Error("Payment still unverified, automatic retries exhausted",
			"order_id", order.ID,
			"transaction_id", order.TransactionID,
			"attempts", attempts,
			"reason", reason)
		return
	}
	uc.logger.Warn("Payment awaiting verification",
		"order_id", order.ID,
		"transaction_id", order.TransactionID,
		"attempts", attempts,
		"reason", reason)
}

func (uc *PaymentUseCase) markFailed(ctx context.Context, order *entities.Order, reason string) {
	failed, err := uc.orderRepo.MarkPaymentFailed(ctx, order.ID, order.TransactionID)
	if err != nil {
		uc.logger.Info("Payment not marked failed", "order_id", order.ID, "reason", reason, "error", err)
		return
	}

	uc.logger.Info("Payment failed", "order_id", failed.ID, "transaction_id", failed.TransactionID, "reason", reason)
	uc.metrics.PaymentFailed()
	publishAsync(uc.publisher, uc.logger, EventPaymentFailed, failed)
}

// HandleGatewayFailure processes the gateway's failure redirect. It always
// yields the failure outcome; a resolvable pending order is marked failed.
func (uc *PaymentUseCase) HandleGatewayFailure(ctx context.Context, data string) entities.Settlement {
	settlement := entities.Settlement{Outcome: entities.OutcomeFailure}

	cb, err := gateway.DecodeCallback(data)
	if err != nil {
		uc.logger.Info("Failure callback without usable payload", "error", err)
		return settlement
	}
	if cb.TransactionID == "" {
		return settlement
	}
	if cb.Signature != "" && uc.signer != nil {
		if err := uc.signer.VerifyCallback(cb); err != nil {
			uc.reject("signature", err, "transaction_id", cb.TransactionID)
			return settlement
		}
	}

	order, err := uc.orderRepo.GetByTransactionID(ctx, cb.TransactionID)
	if err != nil {
		uc.logger.Info("Failure callback for unknown transaction", "transaction_id", cb.TransactionID, "error", err)
		return settlement
	}
	if order.PaymentStatus != entities.PaymentPending {
		return settlement
	}

	uc.markFailed(ctx, order, "gateway failure redirect")
	return settlement
}

type ReconcileReport struct {
	Scanned      int
	Finalized    int
	Resumed      int
	Failed       int
	StillPending int
	Errors       int
}

// Reconcile re-verifies pending payments that could not be verified before
// and resumes stock application for paid orders that stopped half way.
func (uc *PaymentUseCase) Reconcile(ctx context.Context, minAge time.Duration, limit int) (ReconcileReport, error) {
	var report ReconcileReport

	orders, err := uc.orderRepo.ListNeedingReconciliation(ctx, uc.now().Add(-minAge), uc.settings.MaxVerificationAttempts, limit)
	if err != nil {
		return report, fmt.Errorf("failed to list orders for reconciliation: %w", err)
	}
	uc.metrics.Sweep()

	for _, order := range orders {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		switch order.PaymentStatus {
		case entities.PaymentPaid:
			if err := uc.applyStock(ctx, order); err != nil {
				uc.logger.Error("Failed to resume stock application", "order_id", order.ID, "error", err)
				report.Errors++
				continue
			}
			uc.logger.Info("Stock application resumed", "order_id", order.ID, "backordered", len(order.Backordered))
			report.Resumed++

		case entities.PaymentPending:
			switch uc.settle(ctx, order, order.GatewayRef).Outcome {
			case entities.OutcomeSuccess:
				report.Finalized++
			case entities.OutcomeFailure:
				report.Failed++
			default:
				report.StillPending++
			}
		}
	}

	if report.Scanned > 0 {
		uc.logger.Info("Reconciliation sweep finished",
			"scanned", report.Scanned,
			"finalized", report.Finalized,
			"resumed", report.Resumed,
			"failed", report.Failed,
			"still_pending", report.StillPending,
			"errors", report.Errors)
	}
	return report, nil
}
