package kafka

import "fmt"

// Config содержит конфигурацию для подключения к Kafka.
// Kafka в booking сервисе опциональна: без неё integration события и DLQ
// заменяются no-op publisher-ами.
type Config struct {
	// Enabled включает публикацию событий в Kafka
	Enabled bool `env:"KAFKA_ENABLED" envDefault:"false"`
	// Brokers список брокеров через запятую: "broker1:9092,broker2:9092"
	//   - локальная разработка (go run): localhost:19092
	//   - запуск в Docker: kafka:9092
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:19092"`
	// BookingEventsTopic топик integration событий booking.created
	BookingEventsTopic string `env:"KAFKA_BOOKING_EVENTS_TOPIC" envDefault:"booking.created"`
	// NotificationDLQTopic топик для уведомлений, которые не удалось доставить
	NotificationDLQTopic string `env:"KAFKA_NOTIFICATION_DLQ_TOPIC" envDefault:"booking.notification.dlq"`
}

// DefaultConfig возвращает конфигурацию с дефолтными значениями для локальной разработки.
func DefaultConfig() Config {
	return Config{
		Brokers:              []string{"localhost:19092"},
		BookingEventsTopic:   "booking.created",
		NotificationDLQTopic: "booking.notification.dlq",
	}
}

// Validate проверяет конфигурацию только когда Kafka включена
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED=true")
	}
	if c.BookingEventsTopic == "" {
		return fmt.Errorf("KAFKA_BOOKING_EVENTS_TOPIC is required when KAFKA_ENABLED=true")
	}
	if c.NotificationDLQTopic == "" {
		return fmt.Errorf("KAFKA_NOTIFICATION_DLQ_TOPIC is required when KAFKA_ENABLED=true")
	}
	return nil
}
