package activity

import (
	"errors"

	"PPicture/logger"
	"PPicture/tools/errs"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
)

// topicAdmin sarama.ClusterAdmin 中用到的部分
type topicAdmin interface {
	DescribeTopics(topics []string) ([]*sarama.TopicMetadata, error)
	CreateTopic(topic string, detail *sarama.TopicDetail, validateOnly bool) error
	CreatePartitions(topic string, count int32, assignment [][]int32, validateOnly bool) error
}

// TopicSpec 期望的 topic 形态
type TopicSpec struct {
	Name              string
	Partitions        int32
	ReplicationFactor int16
}

// EnsureTopic 不存在就创建；已存在且分区数不足时扩分区（只能增不能减）
func EnsureTopic(admin topicAdmin, spec TopicSpec) error {
	if spec.Partitions <= 0 {
		spec.Partitions = 1
	}
	if spec.ReplicationFactor <= 0 {
		spec.ReplicationFactor = 1
	}
	descs, err := admin.DescribeTopics([]string{spec.Name})
	if err != nil {
		return errs.WrapMsg(err, "describe topic", "topic", spec.Name)
	}
	exists := len(descs) == 1 && descs[0].Err == sarama.ErrNoError

	if !exists {
		minISR := "1"
		if spec.ReplicationFactor >= 3 {
			minISR = "2"
		}
		td := &sarama.TopicDetail{
			NumPartitions:     spec.Partitions,
			ReplicationFactor: spec.ReplicationFactor,
			ConfigEntries: map[string]*string{
				"cleanup.policy":                 strPtr("delete"),
				"min.insync.replicas":            strPtr(minISR),
				"unclean.leader.election.enable": strPtr("false"),
				"compression.type":               strPtr("producer"),
			},
		}
		if err := admin.CreateTopic(spec.Name, td, false); err != nil {
			var te *sarama.TopicError
			if (errors.As(err, &te) && te.Err == sarama.ErrTopicAlreadyExists) || errors.Is(err, sarama.ErrTopicAlreadyExists) {
				logger.Info("[Topic] exists (race)", zap.String("topic", spec.Name))
				return nil
			}
			return errs.WrapMsg(err, "create topic", "topic", spec.Name)
		}
		logger.Info("[Topic] created", zap.String("topic", spec.Name),
			zap.Int32("partitions", spec.Partitions), zap.Int16("rf", spec.ReplicationFactor))
		return nil
	}

	cur := int32(len(descs[0].Partitions))
	if spec.Partitions > cur {
		if err := admin.CreatePartitions(spec.Name, spec.Partitions, nil, false); err != nil {
			return errs.WrapMsg(err, "expand partitions", "topic", spec.Name, "from", cur, "to", spec.Partitions)
		}
		logger.Info("[Topic] partitions expanded", zap.String("topic", spec.Name),
			zap.Int32("from", cur), zap.Int32("to", spec.Partitions))
	}
	return nil
}

func strPtr(s string) *string { return &s }
