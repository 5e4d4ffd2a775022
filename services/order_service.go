package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kendall-kelly/handmade-orders-api/models"
	"github.com/kendall-kelly/handmade-orders-api/realtime"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InitiateOrderInput is the admin's approval of a pending request
type InitiateOrderInput struct {
	AdminResponse *string
}

// InitiateOrderResult holds everything created when a request is approved
type InitiateOrderResult struct {
	Request *models.Request   `json:"request"`
	Order   *models.Order     `json:"order"`
	Chat    *models.OrderChat `json:"chat"`
}

// UpdateLifecycleInput moves an order to a new status
type UpdateLifecycleInput struct {
	Status     string
	TotalPrice *decimal.Decimal
}

// LifecycleResult describes a completed order transition
type LifecycleResult struct {
	OrderID        uint             `json:"order_id"`
	PreviousStatus string           `json:"previous_status"`
	Status         string           `json:"status"`
	TotalPrice     *decimal.Decimal `json:"total_price"`
	RequestStatus  string           `json:"request_status,omitempty"`
}

// OrderFilter narrows order listings
type OrderFilter struct {
	Status string
}

// OrderService turns approved requests into orders and drives their lifecycle
type OrderService struct {
	db     *gorm.DB
	events ChatBroadcaster
	logger *zap.Logger
}

// NewOrderService creates an OrderService. events may be nil.
func NewOrderService(db *gorm.DB, events ChatBroadcaster, logger *zap.Logger) *OrderService {
	return &OrderService{db: db, events: events, logger: logger}
}

// InitiateOrder approves a PENDING request and creates its order and chat in one transaction
func (s *OrderService) InitiateOrder(ctx context.Context, ac AuthContext, requestID uint, in InitiateOrderInput) (*InitiateOrderResult, error) {
	if err := RequireAdmin(ac); err != nil {
		return nil, err
	}

	var result InitiateOrderResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":         models.RequestStatusApproved,
			"approved_at":    time.Now(),
			"approved_by_id": ac.UserID,
		}
		if in.AdminResponse != nil {
			updates["admin_response"] = strings.TrimSpace(*in.AdminResponse)
		}

		res := tx.Model(&models.Request{}).
			Where("id = ? AND status = ?", requestID, models.RequestStatusPending).
			Updates(updates)
		if res.Error != nil {
			return databaseError("Failed to approve request", res.Error)
		}
		if res.RowsAffected == 0 {
			var existing models.Request
			if err := tx.Select("id", "status").First(&existing, requestID).Error; err != nil {
				return lookupError(err, "REQUEST_NOT_FOUND", "Request not found")
			}
			return conflict(fmt.Sprintf("Request is %s; only pending requests can be approved", existing.Status))
		}

		var request models.Request
		if err := tx.Preload("User").First(&request, requestID).Error; err != nil {
			return databaseError("Failed to load approved request", err)
		}

		order := models.Order{
			RequestorID: request.UserID,
			RequestID:   request.ID,
			Status:      models.OrderStatusPending,
		}
		if err := tx.Create(&order).Error; err != nil {
			return databaseError("Failed to create order", err)
		}

		chat := models.OrderChat{OrderID: order.ID, UserID: request.UserID}
		if err := tx.Create(&chat).Error; err != nil {
			return databaseError("Failed to create order chat", err)
		}

		result = InitiateOrderResult{Request: &request, Order: &order, Chat: &chat}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order initiated",
		zap.Uint("request_id", requestID),
		zap.Uint("order_id", result.Order.ID),
		zap.Uint("chat_id", result.Chat.ID),
		zap.Uint("admin_id", ac.UserID),
	)
	return &result, nil
}

// UpdateLifecycle moves an order PENDING -> PROCESSING (admin, with a price)
// or PROCESSING -> DELIVERED (admin or requestor, completing the request)
func (s *OrderService) UpdateLifecycle(ctx context.Context, ac AuthContext, orderID uint, in UpdateLifecycleInput) (*LifecycleResult, error) {
	if err := RequireAuthenticated(ac); err != nil {
		return nil, err
	}

	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, orderID).Error; err != nil {
		return nil, lookupError(err, "ORDER_NOT_FOUND", "Order not found")
	}

	var (
		result *LifecycleResult
		err    error
	)
	switch in.Status {
	case models.OrderStatusProcessing:
		result, err = s.markProcessing(ctx, ac, &order, in.TotalPrice)
	case models.OrderStatusDelivered:
		result, err = s.markDelivered(ctx, ac, &order)
	default:
		return nil, invalidTransition(order.Status, in.Status)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order status changed",
		zap.Uint("order_id", order.ID),
		zap.String("from", result.PreviousStatus),
		zap.String("to", result.Status),
		zap.Uint("user_id", ac.UserID),
	)
	s.publishStatusChange(ctx, result)
	return result, nil
}

func (s *OrderService) markProcessing(ctx context.Context, ac AuthContext, order *models.Order, price *decimal.Decimal) (*LifecycleResult, error) {
	if err := RequireAdmin(ac); err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusPending {
		return nil, invalidTransition(order.Status, models.OrderStatusProcessing)
	}
	if price == nil || !price.IsPositive() {
		return nil, validation("total_price must be a positive number")
	}

	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":      models.OrderStatusProcessing,
			"total_price": *price,
		})
	if res.Error != nil {
		return nil, databaseError("Failed to update order", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, conflict("Order was modified concurrently")
	}

	p := *price
	return &LifecycleResult{
		OrderID:        order.ID,
		PreviousStatus: models.OrderStatusPending,
		Status:         models.OrderStatusProcessing,
		TotalPrice:     &p,
	}, nil
}

func (s *OrderService) markDelivered(ctx context.Context, ac AuthContext, order *models.Order) (*LifecycleResult, error) {
	if order.Status != models.OrderStatusProcessing {
		return nil, invalidTransition(order.Status, models.OrderStatusDelivered)
	}
	if err := RequireAdminOrOwner(ac, order.RequestorID); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderStatusProcessing).
			Update("status", models.OrderStatusDelivered)
		if res.Error != nil {
			return databaseError("Failed to update order", res.Error)
		}
		if res.RowsAffected == 0 {
			return conflict("Order was modified concurrently")
		}

		res = tx.Model(&models.Request{}).
			Where("id = ? AND status = ?", order.RequestID, models.RequestStatusApproved).
			Update("status", models.RequestStatusCompleted)
		if res.Error != nil {
			return databaseError("Failed to complete request", res.Error)
		}
		if res.RowsAffected == 0 {
			return conflict("Request is no longer approved")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &LifecycleResult{
		OrderID:        order.ID,
		PreviousStatus: models.OrderStatusProcessing,
		Status:         models.OrderStatusDelivered,
		TotalPrice:     order.TotalPrice,
		RequestStatus:  models.RequestStatusCompleted,
	}, nil
}

func (s *OrderService) publishStatusChange(ctx context.Context, result *LifecycleResult) {
	if s.events == nil {
		return
	}
	var chat models.OrderChat
	if err := s.db.WithContext(ctx).Select("id").Where("order_id = ?", result.OrderID).First(&chat).Error; err != nil {
		s.logger.Warn("No chat to notify of order status change", zap.Uint("order_id", result.OrderID), zap.Error(err))
		return
	}
	publish(s.events, s.logger, chat.ID, realtime.EventOrderStatusChanged, result)
}

// Get returns an order visible to the caller
func (s *OrderService) Get(ctx context.Context, ac AuthContext, id uint) (*models.Order, error) {
	if err := RequireAuthenticated(ac); err != nil {
		return nil, err
	}

	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Requestor").
		Preload("Request").
		Preload("Chat").
		First(&order, id).Error
	if err != nil {
		return nil, lookupError(err, "ORDER_NOT_FOUND", "Order not found")
	}
	if err := RequireAdminOrOwner(ac, order.RequestorID); err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns every order for admins and the caller's own orders otherwise
func (s *OrderService) List(ctx context.Context, ac AuthContext, filter OrderFilter) ([]models.Order, error) {
	if err := RequireAuthenticated(ac); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Preload("Requestor").Preload("Chat").Order("created_at DESC")
	if !ac.IsAdmin() {
		query = query.Where("requestor_id = ?", ac.UserID)
	}
	if filter.Status != "" {
		if !models.IsValidOrderStatus(filter.Status) {
			return nil, validation(fmt.Sprintf("Unknown order status %q", filter.Status))
		}
		query = query.Where("status = ?", filter.Status)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, databaseError("Failed to fetch orders", err)
	}
	return orders, nil
}

func invalidTransition(from, to string) error {
	return invalidState("INVALID_TRANSITION", fmt.Sprintf("Invalid order status transition from %s to %q", from, to))
}
