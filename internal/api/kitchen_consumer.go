package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"pizzeria/server/internal/models"
	"pizzeria/server/internal/utils"
)

// KitchenConsumer читает заказы из Kafka и раздает их экранам кухни.
// Онлайн-витрина и кухня могут жить в разных процессах, Kafka их связывает
type KitchenConsumer struct {
	brokers   []string
	topic     string
	groupID   string
	reader    *kafka.Reader
	ctx       context.Context
	cancel    context.CancelFunc
	redisUtil *utils.RedisClient
	processed int64
	lastLog   int64
}

// NewKitchenConsumer создает новый Kafka consumer для экранов кухни
func NewKitchenConsumer(brokers string, topic string, redisUtil *utils.RedisClient, username, password, caCert string) *KitchenConsumer {
	brokerList := ParseKafkaBrokers(brokers)
	ctx, cancel := context.WithCancel(context.Background())

	dialer := CreateKafkaDialer(username, password, caCert)

	groupID := "kitchen-screen-group"
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokerList,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset, // Исторические заказы поднимает BootstrapState, не Kafka
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     1 * time.Second,
		Dialer:      dialer,
	})

	return &KitchenConsumer{
		brokers:   brokerList,
		topic:     topic,
		groupID:   groupID,
		reader:    reader,
		ctx:       ctx,
		cancel:    cancel,
		redisUtil: redisUtil,
		lastLog:   time.Now().Unix(),
	}
}

// Start запускает чтение из Kafka и отправку в WebSocket
func (kc *KitchenConsumer) Start() {
	log.Printf("📡 Kitchen Consumer запущен: topic=%s, groupID=%s", kc.topic, kc.groupID)

	go func() {
		for {
			select {
			case <-kc.ctx.Done():
				log.Println("🛑 Kitchen Consumer остановлен")
				return
			default:
				msg, err := kc.reader.ReadMessage(kc.ctx)
				if err != nil {
					if err == context.Canceled {
						return
					}
					log.Printf("⚠️ Kitchen Consumer ошибка чтения: %v", err)
					time.Sleep(1 * time.Second)
					continue
				}

				var order models.PizzaOrder
				if err := json.Unmarshal(msg.Value, &order); err != nil {
					// Чужое сообщение в топике, молча пропускаем
					continue
				}

				// 1. Зеркалим заказ в Redis для быстрой выдачи кухне
				if kc.redisUtil != nil {
					orderJSON, _ := json.Marshal(order)
					orderKey := fmt.Sprintf("kitchen:order:%s", order.ID)
					if err := kc.redisUtil.SetBytes(orderKey, orderJSON, 24*time.Hour); err != nil {
						log.Printf("⚠️ Ошибка сохранения заказа %s в Redis: %v", order.ID, err)
					}

					if order.Status.Terminal() {
						kc.redisUtil.SRem("kitchen:orders:active", order.ID)
					} else {
						kc.redisUtil.SAdd("kitchen:orders:active", order.ID)
					}
				}

				// 2. Событие для экранов кухни
				BroadcastKitchenEvent("new_order", map[string]interface{}{
					"order_id":   order.ID,
					"display_id": order.DisplayID,
					"status":     order.Status,
				})

				processed := atomic.AddInt64(&kc.processed, 1)
				now := time.Now().Unix()
				if now-atomic.LoadInt64(&kc.lastLog) >= 5 {
					atomic.StoreInt64(&kc.lastLog, now)
					log.Printf("📊 Kitchen Consumer: обработано %d заказов", processed)
				}
			}
		}
	}()
}

// Stop останавливает Kafka consumer
func (kc *KitchenConsumer) Stop() {
	kc.cancel()
	if kc.reader != nil {
		kc.reader.Close()
	}
	log.Println("🛑 Kitchen Consumer остановлен")
}
