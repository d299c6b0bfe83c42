package activity

import (
	"context"
	"strings"
	"time"

	"PPicture/service/collab"
	"PPicture/tools/errs"

	"github.com/Shopify/sarama"
)

// BuildProducerConfig 同步生产者配置；key 决定分区
func BuildProducerConfig(compression string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0

	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	switch strings.ToLower(compression) {
	case "snappy":
		cfg.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		cfg.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		cfg.Producer.Compression = sarama.CompressionZSTD
	default:
		cfg.Producer.Compression = sarama.CompressionNone
	}

	cfg.Net.DialTimeout = 10 * time.Second
	cfg.Net.ReadTimeout = 30 * time.Second
	cfg.Net.WriteTimeout = 30 * time.Second
	return cfg
}

type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

type KafkaConfig struct {
	Brokers     []string
	Topic       string
	Compression string
	// Partitions > 0 时启动前确保 topic 存在
	Partitions        int32
	ReplicationFactor int16
}

func NewKafkaPublisher(c KafkaConfig) (*KafkaPublisher, error) {
	if len(c.Brokers) == 0 || c.Topic == "" {
		return nil, errs.ErrArgs.WrapMsg("kafka brokers and topic are required")
	}
	cfg := BuildProducerConfig(c.Compression)
	if c.Partitions > 0 {
		admin, err := sarama.NewClusterAdmin(c.Brokers, cfg)
		if err != nil {
			return nil, errs.WrapMsg(err, "kafka cluster admin", "brokers", strings.Join(c.Brokers, ","))
		}
		err = EnsureTopic(admin, TopicSpec{Name: c.Topic, Partitions: c.Partitions, ReplicationFactor: c.ReplicationFactor})
		_ = admin.Close()
		if err != nil {
			return nil, err
		}
	}
	producer, err := sarama.NewSyncProducer(c.Brokers, cfg)
	if err != nil {
		return nil, errs.WrapMsg(err, "kafka sync producer", "brokers", strings.Join(c.Brokers, ","))
	}
	return newKafkaPublisher(producer, c.Topic), nil
}

func newKafkaPublisher(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, a *collab.Activity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(a)
	if err != nil {
		return err
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(partitionKey(a)),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("kind"), Value: []byte(a.Kind)},
		},
	})
	if err != nil {
		return errs.WrapMsg(err, "kafka send", "topic", p.topic)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
