package config

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"tradepost.com/pkg/logger"
)

// EnvPrefix 服务名转环境变量前缀: merchant-service -> MERCHANT_SERVICE
func EnvPrefix(service string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(service))
}

// Load 读取 config/{service}.yaml (或当前目录)，环境变量可覆盖
//
//	MERCHANT_SERVICE_HTTP_ADDR 覆盖 http.addr
func Load(service string, out interface{}, paths ...string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName(service)
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix(service))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(out); err != nil {
		return nil, err
	}
	return v, nil
}

// LoadAndWatch 同 Load，并监听文件变更热更新到 out
func LoadAndWatch(service string, out interface{}, paths ...string) (*viper.Viper, error) {
	v, err := Load(service, out, paths...)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("config loaded", zap.String("service", service), zap.String("file", v.ConfigFileUsed()))

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		if err := v.Unmarshal(out); err != nil {
			logger.Log.Error("reload config error", zap.String("file", e.Name), zap.Error(err))
			return
		}
		logger.Log.Info("config reloaded", zap.String("file", e.Name))
	})

	return v, nil
}
