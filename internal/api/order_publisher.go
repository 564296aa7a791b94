package api

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"pizzeria/server/internal/models"
)

// OrderPublisher отправляет оформленные заказы в Kafka,
// откуда их забирают экраны кухни
type OrderPublisher struct {
	writer *kafka.Writer
	topic  string
}

// NewOrderPublisher создает Kafka producer для заказов.
// Пустой список брокеров означает работу без Kafka (разработка)
func NewOrderPublisher(brokers string, topic string, username, password, caCert string) *OrderPublisher {
	brokerList := ParseKafkaBrokers(brokers)
	if len(brokerList) == 0 {
		log.Println("ℹ️ Kafka brokers не заданы, заказы уходят только в WebSocket")
		return &OrderPublisher{topic: topic}
	}

	dialer := CreateKafkaDialer(username, password, caCert)

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokerList,
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		Dialer:       dialer,
	})

	log.Printf("📤 Kafka producer для заказов запущен: topic=%s", topic)
	return &OrderPublisher{writer: writer, topic: topic}
}

// Publish отправляет заказ в топик. Ключ - ID заказа,
// обновления одного заказа попадают в одну партицию по порядку
func (op *OrderPublisher) Publish(order models.PizzaOrder) error {
	if op.writer == nil {
		return nil
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return op.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(order.ID),
		Value: payload,
	})
}

// Close останавливает producer
func (op *OrderPublisher) Close() error {
	if op.writer == nil {
		return nil
	}
	return op.writer.Close()
}
