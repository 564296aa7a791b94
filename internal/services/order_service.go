package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/lib/pq"

	"pizzeria/server/internal/models"
	"pizzeria/server/internal/utils"
)

// Статусы, с которыми заказ считается активным для кухни
var activeStatuses = []string{
	string(models.StatusReceived),
	string(models.StatusPreparing),
	string(models.StatusReady),
	string(models.StatusOutForDelivery),
}

// OrderService управляет заказами и их жизненным циклом
type OrderService struct {
	db        *sql.DB
	redisUtil *utils.RedisClient
}

// NewOrderService создает новый сервис заказов
func NewOrderService(db *sql.DB, redisUtil *utils.RedisClient) *OrderService {
	return &OrderService{
		db:        db,
		redisUtil: redisUtil,
	}
}

// BootstrapState восстанавливает активные заказы из PostgreSQL в Redis.
// Выполняется при старте сервера ПЕРЕД запуском Kafka consumer,
// чтобы экран кухни после перезапуска видел то же, что и до него
func (os *OrderService) BootstrapState() error {
	if os.db == nil {
		return fmt.Errorf("database connection not available")
	}
	if os.redisUtil == nil {
		return fmt.Errorf("Redis connection not available")
	}

	startTime := time.Now()
	log.Printf("🔄 BootstrapState: начало восстановления состояния из PostgreSQL...")

	query := `
		SELECT
			id, display_id, customer_name, customer_phone, customer_email,
			delivery_type, delivery_address, postcode, items_json, items_total,
			delivery_fee, total, notes, scheduled_for, status, created_at, updated_at
		FROM pizza_orders
		WHERE status = ANY($1)
		ORDER BY created_at DESC
		LIMIT 10000
	`

	rows, err := os.db.Query(query, pq.Array(activeStatuses))
	if err != nil {
		return fmt.Errorf("ошибка запроса активных заказов: %w", err)
	}
	defer rows.Close()

	var ordersLoaded, ordersRestored int
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			log.Printf("⚠️ BootstrapState: ошибка сканирования заказа: %v", err)
			continue
		}
		ordersLoaded++

		if err := os.mirrorOrder(order); err != nil {
			log.Printf("⚠️ BootstrapState: ошибка восстановления заказа %s в Redis: %v", order.ID, err)
			continue
		}
		ordersRestored++
	}

	log.Printf("✅ BootstrapState: завершено за %v (загружено %d, восстановлено %d)",
		time.Since(startTime), ordersLoaded, ordersRestored)
	return nil
}

// SaveOrder сохраняет заказ в PostgreSQL (использует транзакционную версию)
func (os *OrderService) SaveOrder(order models.PizzaOrder) error {
	return os.SaveOrderWithTransaction(order)
}

// SaveOrderWithTransaction сохраняет заказ с SERIALIZABLE изоляцией.
// Serialization failures ретраятся с экспоненциальной задержкой
func (os *OrderService) SaveOrderWithTransaction(order models.PizzaOrder) error {
	if os.db == nil {
		return fmt.Errorf("database connection not available")
	}

	maxRetries := 5
	baseDelay := 10 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := os.saveOrderInTransaction(order)
		if err == nil {
			if attempt > 0 {
				log.Printf("✅ SaveOrderWithTransaction: успешно после %d попыток (order: %s)", attempt+1, order.ID)
			}
			if err := os.mirrorOrder(order); err != nil {
				log.Printf("⚠️ SaveOrderWithTransaction: заказ %s сохранен, но не попал в Redis: %v", order.ID, err)
			}
			return nil
		}

		if isSerializationFailure(err) {
			if attempt < maxRetries-1 {
				delay := baseDelay * time.Duration(1<<uint(attempt))
				jitter := time.Duration(rand.Intn(10)) * time.Millisecond
				totalDelay := delay + jitter

				log.Printf("⚠️ SaveOrderWithTransaction: serialization failure (попытка %d/%d, order: %s), retry через %v",
					attempt+1, maxRetries, order.ID, totalDelay)
				time.Sleep(totalDelay)
				continue
			}
			return fmt.Errorf("serialization failure after %d attempts: %w", maxRetries, err)
		}

		return fmt.Errorf("ошибка сохранения заказа: %w", err)
	}

	return fmt.Errorf("unreachable code")
}

// saveOrderInTransaction выполняет INSERT заказа в транзакции с SERIALIZABLE изоляцией
func (os *OrderService) saveOrderInTransaction(order models.PizzaOrder) error {
	ctx := context.Background()

	tx, err := os.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
		ReadOnly:  false,
	})
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("ошибка сериализации items: %w", err)
	}

	query := `
		INSERT INTO pizza_orders (
			id, display_id, customer_name, customer_phone, customer_email,
			delivery_type, delivery_address, postcode, items_json, items_total,
			delivery_fee, total, notes, scheduled_for, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = NOW(),
			completed_at = CASE WHEN EXCLUDED.status IN ('delivered', 'picked_up') THEN NOW() ELSE pizza_orders.completed_at END
	`

	_, err = tx.ExecContext(ctx, query,
		order.ID, order.DisplayID, order.CustomerName, order.CustomerPhone, order.CustomerEmail,
		string(order.DeliveryType), order.DeliveryAddress, order.Postcode, itemsJSON, order.ItemsTotal,
		order.DeliveryFee, order.Total, order.Notes, order.ScheduledFor, string(order.Status),
		order.CreatedAt, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("ошибка выполнения INSERT: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка commit транзакции: %w", err)
	}

	return nil
}

// isSerializationFailure проверяет, является ли ошибка serialization failure
func isSerializationFailure(err error) bool {
	if err == nil {
		return false
	}

	// PostgreSQL error codes:
	// 40001 - serialization_failure
	// 40P01 - deadlock_detected
	if pgErr, ok := err.(*pq.Error); ok {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "serialization") ||
		strings.Contains(errMsg, "deadlock") ||
		strings.Contains(errMsg, "could not serialize")
}

// AdvanceStatus переводит заказ в новый статус по схеме compare-and-set:
// UPDATE срабатывает только если статус в БД все еще равен ожидаемому.
// Две кухонные станции, жмущие кнопку одновременно, не перескочат этап
func (os *OrderService) AdvanceStatus(orderID string, expected, next models.OrderStatus) (*models.PizzaOrder, error) {
	if os.db == nil {
		return nil, fmt.Errorf("database connection not available")
	}
	if !next.Valid() {
		return nil, models.ErrInvalidStatus
	}

	var currentStatus, deliveryType string
	err := os.db.QueryRow(`SELECT status, delivery_type FROM pizza_orders WHERE id = $1`, orderID).
		Scan(&currentStatus, &deliveryType)
	if err == sql.ErrNoRows {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения заказа: %w", err)
	}

	if models.OrderStatus(currentStatus) != expected {
		return nil, models.ErrTransitionRejected
	}
	if !expected.CanTransitionTo(next, models.DeliveryType(deliveryType)) {
		return nil, models.ErrTransitionRejected
	}

	result, err := os.db.Exec(`
		UPDATE pizza_orders
		SET status = $1, updated_at = NOW(),
			completed_at = CASE WHEN $1 IN ('delivered', 'picked_up') THEN NOW() ELSE completed_at END
		WHERE id = $2 AND status = $3
	`, string(next), orderID, string(expected))
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления статуса заказа: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения результата обновления: %w", err)
	}
	if rowsAffected == 0 {
		// Кто-то успел поменять статус между чтением и UPDATE
		return nil, models.ErrTransitionRejected
	}

	order, err := os.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	if err := os.mirrorOrder(*order); err != nil {
		log.Printf("⚠️ AdvanceStatus: статус заказа %s обновлен, но Redis не синхронизирован: %v", orderID, err)
	}

	log.Printf("📋 Заказ %s: %s → %s", order.DisplayID, expected, next)
	return order, nil
}

// GetOrder загружает заказ из PostgreSQL
func (os *OrderService) GetOrder(orderID string) (*models.PizzaOrder, error) {
	if os.db == nil {
		return nil, fmt.Errorf("database connection not available")
	}

	row := os.db.QueryRow(`
		SELECT
			id, display_id, customer_name, customer_phone, customer_email,
			delivery_type, delivery_address, postcode, items_json, items_total,
			delivery_fee, total, notes, scheduled_for, status, created_at, updated_at
		FROM pizza_orders
		WHERE id = $1
	`, orderID)

	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения заказа: %w", err)
	}
	return &order, nil
}

// ActiveOrders возвращает активные заказы для экрана кухни,
// старые сверху - кухня готовит в порядке поступления
func (os *OrderService) ActiveOrders() ([]models.PizzaOrder, error) {
	if os.db == nil {
		return nil, fmt.Errorf("database connection not available")
	}

	rows, err := os.db.Query(`
		SELECT
			id, display_id, customer_name, customer_phone, customer_email,
			delivery_type, delivery_address, postcode, items_json, items_total,
			delivery_fee, total, notes, scheduled_for, status, created_at, updated_at
		FROM pizza_orders
		WHERE status = ANY($1)
		ORDER BY created_at ASC
	`, pq.Array(activeStatuses))
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса активных заказов: %w", err)
	}
	defer rows.Close()

	var orders []models.PizzaOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			log.Printf("⚠️ ActiveOrders: ошибка сканирования заказа: %v", err)
			continue
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// ArchiveOldOrders архивирует завершенные заказы старше года.
// Вызывается фоновым воркером раз в день
func (os *OrderService) ArchiveOldOrders() error {
	if os.db == nil {
		return fmt.Errorf("database connection not available")
	}

	startTime := time.Now()
	log.Printf("🗄️ ArchiveOldOrders: начало архивирования старых заказов...")

	cutoffDate := time.Now().AddDate(-1, 0, 0)

	result, err := os.db.Exec(`
		UPDATE pizza_orders
		SET status = 'archived', updated_at = NOW()
		WHERE status IN ('delivered', 'picked_up')
		AND created_at < $1
	`, cutoffDate)
	if err != nil {
		return fmt.Errorf("ошибка архивирования заказов: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества заархивированных заказов: %w", err)
	}

	log.Printf("✅ ArchiveOldOrders: заархивировано %d заказов за %v", rowsAffected, time.Since(startTime))
	return nil
}

// mirrorOrder кладет заказ в Redis для быстрой выдачи кухне.
// Терминальные заказы убираются из активного набора
func (os *OrderService) mirrorOrder(order models.PizzaOrder) error {
	if os.redisUtil == nil {
		return nil
	}

	orderJSON, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("ошибка сериализации заказа: %w", err)
	}

	orderKey := fmt.Sprintf("kitchen:order:%s", order.ID)
	if err := os.redisUtil.SetBytes(orderKey, orderJSON, 24*time.Hour); err != nil {
		return err
	}

	if order.Status.Terminal() {
		return os.redisUtil.SRem("kitchen:orders:active", order.ID)
	}
	return os.redisUtil.SAdd("kitchen:orders:active", order.ID)
}

// rowScanner покрывает *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (models.PizzaOrder, error) {
	var order models.PizzaOrder
	var itemsJSON []byte
	var deliveryType, status string

	err := row.Scan(
		&order.ID, &order.DisplayID, &order.CustomerName, &order.CustomerPhone, &order.CustomerEmail,
		&deliveryType, &order.DeliveryAddress, &order.Postcode, &itemsJSON, &order.ItemsTotal,
		&order.DeliveryFee, &order.Total, &order.Notes, &order.ScheduledFor, &status,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return order, err
	}

	order.DeliveryType = models.DeliveryType(deliveryType)
	order.Status = models.OrderStatus(status)

	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
			return order, fmt.Errorf("ошибка парсинга items для заказа %s: %w", order.ID, err)
		}
	}
	return order, nil
}
