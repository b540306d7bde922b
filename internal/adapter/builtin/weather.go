// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package builtin

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"agent-platform/internal/adapter"
)

const (
	defaultGeocodeURL  = "https://geocoding-api.open-meteo.com"
	defaultForecastURL = "https://api.open-meteo.com"
)

// wmoConditions WMO weather code 到文字描述的映射
var wmoConditions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Foggy",
	51: "Light drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	71: "Slight snow",
	95: "Thunderstorm",
}

// WeatherAdapter 天气能力：Open-Meteo 地理编码 + 当前天气，两步查询，无需 API Key
type WeatherAdapter struct {
	geocodeURL  string
	forecastURL string
	client      *resty.Client
}

// NewWeatherAdapter 创建天气适配器；geocodeURL / forecastURL 为空时使用官方端点
func NewWeatherAdapter(geocodeURL, forecastURL string) *WeatherAdapter {
	if geocodeURL == "" {
		geocodeURL = defaultGeocodeURL
	}
	if forecastURL == "" {
		forecastURL = defaultForecastURL
	}
	client := resty.New()
	return &WeatherAdapter{
		geocodeURL:  strings.TrimSuffix(geocodeURL, "/"),
		forecastURL: strings.TrimSuffix(forecastURL, "/"),
		client:      client,
	}
}

// Name 实现 adapter.Adapter
func (w *WeatherAdapter) Name() string { return "weather" }

// Description 实现 adapter.Adapter
func (w *WeatherAdapter) Description() string {
	return "查询指定城市的当前天气（温度、体感、湿度、风速、降水、天况）"
}

// Parameters 实现 adapter.Adapter
func (w *WeatherAdapter) Parameters() []adapter.ParamSpec {
	return []adapter.ParamSpec{
		{Name: "location", Description: "城市或地点名称，如 Paris、Tokyo", Required: true},
	}
}

// geocodeResult Open-Meteo 地理编码响应
type geocodeResult struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

// forecastResult Open-Meteo 当前天气响应
type forecastResult struct {
	Current struct {
		Temperature   float64 `json:"temperature_2m"`
		Humidity      float64 `json:"relative_humidity_2m"`
		FeelsLike     float64 `json:"apparent_temperature"`
		Precipitation float64 `json:"precipitation"`
		WeatherCode   int     `json:"weather_code"`
		WindSpeed     float64 `json:"wind_speed_10m"`
	} `json:"current"`
}

// Invoke 实现 adapter.Adapter：先地理编码，再取当前天气。
// 网络/HTTP 错误视为可重试；地点不存在视为不可重试。
func (w *WeatherAdapter) Invoke(ctx context.Context, params map[string]string) adapter.Result {
	location := strings.TrimSpace(params["location"])
	if location == "" {
		return adapter.Fail("missing location", false)
	}

	var geo geocodeResult
	resp, err := w.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"name":     location,
			"count":    "1",
			"language": "en",
			"format":   "json",
		}).
		SetResult(&geo).
		Get(w.geocodeURL + "/v1/search")
	if err != nil {
		return adapter.Fail(fmt.Sprintf("geocoding request failed: %v", err), true)
	}
	if resp.StatusCode() != http.StatusOK {
		return adapter.Fail(fmt.Sprintf("geocoding returned status %d", resp.StatusCode()), true)
	}
	if len(geo.Results) == 0 {
		return adapter.Fail("location not found: "+location, false)
	}
	place := geo.Results[0]

	var fc forecastResult
	resp, err = w.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latitude":  fmt.Sprintf("%.4f", place.Latitude),
			"longitude": fmt.Sprintf("%.4f", place.Longitude),
			"current":   "temperature_2m,relative_humidity_2m,apparent_temperature,precipitation,weather_code,wind_speed_10m",
			"timezone":  "auto",
		}).
		SetResult(&fc).
		Get(w.forecastURL + "/v1/forecast")
	if err != nil {
		return adapter.Fail(fmt.Sprintf("forecast request failed: %v", err), true)
	}
	if resp.StatusCode() != http.StatusOK {
		return adapter.Fail(fmt.Sprintf("forecast returned status %d", resp.StatusCode()), true)
	}

	condition, ok := wmoConditions[fc.Current.WeatherCode]
	if !ok {
		condition = "Unknown"
	}
	displayName := place.Name
	if place.Country != "" {
		displayName = place.Name + ", " + place.Country
	}
	return adapter.Ok(map[string]any{
		"location":      displayName,
		"temperature":   fc.Current.Temperature,
		"feels_like":    fc.Current.FeelsLike,
		"humidity":      fc.Current.Humidity,
		"wind_speed":    fc.Current.WindSpeed,
		"precipitation": fc.Current.Precipitation,
		"condition":     condition,
	})
}
