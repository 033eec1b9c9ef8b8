package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/jirananyenlab/storeMom/internal/domain"
	"github.com/jirananyenlab/storeMom/internal/messaging/kafka"
)

// initEventPublishing собирает producer и оба publisher'а событий заказов.
// Пустой список брокеров или ошибка подключения выключают публикацию:
// сервис работает, события копятся в outbox до появления брокера.
func initEventPublishing(brokers, topic string, logger *log.Entry) (*kafka.Producer, domain.OutboxPublisher, domain.OutboxPublisher) {
	if brokers == "" {
		return nil, nil, nil
	}

	brokerList := strings.Split(brokers, ",")
	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("kafka producer init failed, order events stay in outbox")
		return nil, nil, nil
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, kafka.NewEventPublisher(producer, topic), kafka.NewDeadLetterPublisher(producer, topic)
}

// closeEventPublishing закрывает producer, если он был создан.
func closeEventPublishing(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
