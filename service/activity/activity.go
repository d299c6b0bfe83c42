// Package activity delivers collaboration activity (join, leave, enter and
// exit editing) to a downstream broker.
package activity

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"PPicture/global"
	"PPicture/service/collab"
	"PPicture/tools/errs"
)

func encode(a *collab.Activity) ([]byte, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, errs.WrapMsg(err, "encode activity", "kind", a.Kind)
	}
	return b, nil
}

// partitionKey 同一图片的动态落在同一分区
func partitionKey(a *collab.Activity) string {
	return strconv.FormatInt(a.PictureID, 10)
}

// New 按配置选择投递方式；driver 为 none 时返回 nil（由调用方回落到空实现）
func New(cfg global.ActivityConfig, nodeName string) (collab.ActivityPublisher, io.Closer, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", global.ActivityDriverNone:
		return nil, nil, nil
	case global.ActivityDriverNats:
		p, err := NewNatsPublisher(NatsConfig{Servers: cfg.Servers, Name: nodeName, Subject: cfg.Subject})
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	case global.ActivityDriverKafka:
		p, err := NewKafkaPublisher(KafkaConfig{
			Brokers:           cfg.Brokers,
			Topic:             cfg.Topic,
			Compression:       cfg.Compression,
			Partitions:        cfg.Partitions,
			ReplicationFactor: cfg.ReplicationFactor,
		})
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	default:
		return nil, nil, errs.ErrArgs.WrapMsg("unknown activity driver", "driver", cfg.Driver)
	}
}
