package storage

import (
	"context"
	"fmt"
	"strings"

	"resume-matcher/internal/config"
	"resume-matcher/internal/logger"
)

// Storage 聚合已启用的存储组件，未启用或初始化失败的组件为 nil
type Storage struct {
	MinIO    *MinIO
	RabbitMQ *RabbitMQ
	MySQL    *MySQL
	Redis    *Redis
}

// NewStorage 按配置初始化各组件；单个组件失败只记录告警
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	log := logger.Component("storage")
	s := &Storage{}
	var err error
	var initErrors []string

	if cfg.MinIO.Enabled {
		s.MinIO, err = NewMinIO(&cfg.MinIO, logger.Component("minio"))
		if err != nil {
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
		}
	}

	if cfg.RabbitMQ.Enabled {
		s.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err == nil {
			if err = s.RabbitMQ.SetupScoreTopology(); err != nil {
				_ = s.RabbitMQ.Close()
				s.RabbitMQ = nil
			}
		}
		if err != nil {
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
		}
	}

	if cfg.MySQL.Enabled {
		s.MySQL, err = NewMySQL(&cfg.MySQL)
		if err != nil {
			initErrors = append(initErrors, fmt.Sprintf("MySQL: %v", err))
		}
	}

	if cfg.Redis.Enabled {
		s.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		}
	}

	if len(initErrors) > 0 {
		log.Warn().Str("errors", strings.Join(initErrors, "; ")).Msg("部分存储组件初始化失败")
	}
	log.Info().
		Bool("minio", s.MinIO != nil).
		Bool("rabbitmq", s.RabbitMQ != nil).
		Bool("mysql", s.MySQL != nil).
		Bool("redis", s.Redis != nil).
		Msg("存储组件初始化完成")
	return s, nil
}

// AsyncReady 异步评分需要对象存储、数据库与消息队列同时可用
func (s *Storage) AsyncReady() bool {
	return s != nil && s.MinIO != nil && s.MySQL != nil && s.RabbitMQ != nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	log := logger.Component("storage")
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			log.Error().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			log.Error().Err(err).Msg("关闭MySQL连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Error().Err(err).Msg("关闭Redis连接失败")
		}
	}
}
