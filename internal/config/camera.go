package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/camrelay/internal/camera"
)

// CameraEnvPrefix precedes the upper-cased toml key of each camera field,
// e.g. CAMRELAY_CAMERA_HOST. The same name without EnvPrefix
// (CAMERA_HOST) is accepted next.
const CameraEnvPrefix = EnvPrefix + "CAMERA_"

// legacyCameraEnv maps camera toml keys to the variables used by earlier
// deployments. They apply only when neither CAMERA_ form is set.
var legacyCameraEnv = map[string]string{
	"url":      "RTSP_CAMERA_URL",
	"host":     "RTSP_CAMERA_IP",
	"port":     "RTSP_CAMERA_PORT",
	"username": "RTSP_CAMERA_USERNAME",
	"password": "RTSP_CAMERA_PASSWORD",
	"channel":  "RTSP_CAMERA_CHANNEL",
}

// LoadCameraSource reads the [camera] section of a TOML file, applies
// environment overrides and fills defaults. A missing
// file yields the environment and defaults alone.
func LoadCameraSource(path string) (camera.Source, error) {
	var raw struct {
		Camera camera.Source `toml:"camera"`
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &raw); err != nil {
				return camera.Source{}, fmt.Errorf("failed to parse camera config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return camera.Source{}, fmt.Errorf("failed to read camera config %s: %w", path, err)
		}
	}

	src := raw.Camera
	if err := applyCameraEnv(&src); err != nil {
		return camera.Source{}, err
	}
	src = src.WithDefaults()

	if err := src.Validate(); err != nil {
		return camera.Source{}, err
	}
	return src, nil
}

func applyCameraEnv(src *camera.Source) error {
	v := reflect.ValueOf(src).Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		tag := t.Field(i).Tag.Get("toml")
		if tag == "" {
			continue
		}
		key, value := firstEnv(cameraEnvNames(tag))
		if value == "" {
			continue
		}
		if err := setFieldValueFromString(v.Field(i), value); err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
	}
	return nil
}

// cameraEnvNames lists the variables consulted for a camera field,
// highest precedence first.
func cameraEnvNames(tag string) []string {
	unprefixed := strings.TrimPrefix(CameraEnvPrefix, EnvPrefix) + strings.ToUpper(tag)
	names := []string{EnvPrefix + unprefixed, unprefixed}
	if legacy, ok := legacyCameraEnv[tag]; ok {
		names = append(names, legacy)
	}
	return names
}
