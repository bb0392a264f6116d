package redisdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

type Redis struct {
	Addr         string
	Client       *redis.Client
	Name         string
	RegisterTime time.Time
}

var redisInstances sync.Map

func GetRedis(name string) (*Redis, error) {
	value, ok := redisInstances.Load(name)
	if !ok {
		return nil, fmt.Errorf("redis not found, name:%s", name)
	}

	instance, ok := value.(*Redis)
	if !ok {
		return nil, fmt.Errorf("redis not found, name:%s", name)
	}

	return instance, nil
}

func (m *Redis) Init(password string, db int) error {
	client := redis.NewClient(&redis.Options{
		Addr:         m.Addr,
		Password:     password,
		DB:           db,
		DialTimeout:  time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	m.Client = client
	return client.Ping(ctx).Err()
}

func RegisterRedis(name, addr, password string, db int) error {
	if value, ok := redisInstances.Load(name); ok {
		instance, ok2 := value.(*Redis)
		if ok2 && instance.Addr == addr {
			return nil
		}
	}

	m := &Redis{
		Addr:         addr,
		Name:         name,
		RegisterTime: time.Now(),
	}
	if err := m.Init(password, db); err != nil {
		return fmt.Errorf("register redis %s: %w", name, err)
	}
	redisInstances.Store(name, m)

	return nil
}

func RemoveRedis(name string) {
	value, ok := redisInstances.Load(name)
	if !ok {
		return
	}
	instance, ok := value.(*Redis)
	if !ok {
		return
	}

	if instance.Client != nil {
		instance.Client.Close()
	}

	redisInstances.Delete(name)
}
