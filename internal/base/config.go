package base

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"reflect"
	"strconv"

	"github.com/tidwall/gjson"
)

// Settings 对应 config.json，config 标签是 gjson 路径
type Settings struct {
	Addr  string `config:"addr" default:":8080"`
	Debug bool   `config:"debug"`

	DBDriver string `config:"database.driver" default:"postgres"`
	DSN      string `config:"database.dsn"`

	AdminToken       string `config:"admin.token"`
	MinClientVersion string `config:"admin.min_client_version" default:"v0.1.0"`

	CacheSize       int `config:"cache.size" default:"64"`
	CacheTTLSeconds int `config:"cache.ttl_seconds" default:"300"`
}

var Config Settings

// InitConfig 读取 $CATALOG_CONFIG 指定的文件，默认 config.json，文件不存在时使用默认值
func InitConfig() {
	path := os.Getenv("CATALOG_CONFIG")
	if path == "" {
		path = "config.json"
	}
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("load config %s: %v", path, err)
	}
	Config = cfg
}

func Load(path string) (Settings, error) {
	file, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, err
	}
	if len(file) > 0 && !gjson.ValidBytes(file) {
		return Settings{}, fmt.Errorf("%s: invalid json", path)
	}
	return Parse(file)
}

// Parse 解析 JSON 配置，缺失的键使用 default 标签
func Parse(raw []byte) (Settings, error) {
	var s Settings
	g := gjson.ParseBytes(raw)

	v := reflect.ValueOf(&s).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Tag.Get("config")
		if name == "" {
			continue
		}
		r := g.Get(name)
		def, hasDef := field.Tag.Lookup("default")

		switch field.Type.Kind() {
		case reflect.String:
			if r.Exists() {
				v.Field(i).SetString(r.String())
			} else {
				v.Field(i).SetString(def)
			}
		case reflect.Int:
			switch {
			case r.Exists():
				v.Field(i).SetInt(r.Int())
			case hasDef:
				n, err := strconv.Atoi(def)
				if err != nil {
					return Settings{}, fmt.Errorf("default for %s: %w", name, err)
				}
				v.Field(i).SetInt(int64(n))
			}
		case reflect.Bool:
			switch {
			case r.Exists():
				v.Field(i).SetBool(r.Bool())
			case hasDef:
				b, err := strconv.ParseBool(def)
				if err != nil {
					return Settings{}, fmt.Errorf("default for %s: %w", name, err)
				}
				v.Field(i).SetBool(b)
			}
		default:
			panic("unsupported type")
		}
	}
	return s, nil
}
