package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/egpivo/metering-chain/internal/entity"
)

// Transfer moves transfer records through a Kafka topic. Store appends
// a single record; Batch drains the whole topic so the engine always
// works on a complete, already-collected batch.
type Transfer struct {
	kafkaClient sarama.Client
	producer    sarama.SyncProducer
	topic       string
}

func NewTransfer(kafkaClient sarama.Client, prod sarama.SyncProducer, topic string) *Transfer {
	return &Transfer{
		kafkaClient: kafkaClient,
		producer:    prod,
		topic:       topic,
	}
}

func (t *Transfer) Store(ctx context.Context, rec entity.TransferRecord) error {
	js, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("json marshal record: %w", err)
	}

	_, _, err = t.producer.SendMessage(&sarama.ProducerMessage{
		Topic: t.topic,
		Key:   sarama.StringEncoder(rec.Owner),
		Value: sarama.ByteEncoder(js),
	})
	if err != nil {
		return fmt.Errorf("send record to kafka: %w", err)
	}

	return nil
}

// Batch reads partition 0 from the oldest offset up to the newest one
// captured at call time and returns every decodable record plus the
// count of skipped messages.
// Let’s assume for simplicity that we have one partition.
func (t *Transfer) Batch(ctx context.Context) ([]entity.TransferRecord, int, error) {
	next, err := t.kafkaClient.GetOffset(t.topic, 0, sarama.OffsetNewest)
	if err != nil {
		return nil, 0, fmt.Errorf("get offset: %w", err)
	}
	if next <= 0 {
		// empty topic
		return nil, 0, nil
	}

	cons, err := sarama.NewConsumerFromClient(t.kafkaClient)
	if err != nil {
		return nil, 0, fmt.Errorf("new consumer: %w", err)
	}
	defer cons.Close()

	cp, err := cons.ConsumePartition(t.topic, 0, sarama.OffsetOldest)
	if err != nil {
		return nil, 0, fmt.Errorf("consume partition: %w", err)
	}
	defer cp.Close()

	records := make([]entity.TransferRecord, 0, next)
	skipped := 0
	last := next - 1
	for {
		select {
		case <-ctx.Done():
			return nil, skipped, ctx.Err()
		case msg := <-cp.Messages():
			rec := entity.TransferRecord{}
			if err := json.Unmarshal(msg.Value, &rec); err != nil {
				skipped++
			} else {
				records = append(records, rec)
			}

			if msg.Offset >= last {
				return records, skipped, nil
			}
		}
	}
}
