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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherAdapter_Invoke(t *testing.T) {
	geocode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Paris", r.URL.Query().Get("name"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"name":"Paris","country":"France","latitude":48.85,"longitude":2.35}]}`))
	}))
	defer geocode.Close()
	forecast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("latitude"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"current":{"temperature_2m":18.5,"relative_humidity_2m":60,"apparent_temperature":17.9,"precipitation":0,"weather_code":2,"wind_speed_10m":12.3}}`))
	}))
	defer forecast.Close()

	a := NewWeatherAdapter(geocode.URL, forecast.URL)
	res := a.Invoke(context.Background(), map[string]string{"location": "Paris"})
	require.True(t, res.OK, "reason: %s", res.Reason)

	payload, ok := res.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Paris, France", payload["location"])
	assert.Equal(t, 18.5, payload["temperature"])
	assert.Equal(t, "Partly cloudy", payload["condition"])
}

func TestWeatherAdapter_MissingLocation(t *testing.T) {
	a := NewWeatherAdapter("", "")
	res := a.Invoke(context.Background(), map[string]string{})
	require.False(t, res.OK)
	assert.Equal(t, "missing location", res.Reason)
	assert.False(t, res.Retryable)
}

func TestWeatherAdapter_LocationNotFound(t *testing.T) {
	geocode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer geocode.Close()

	a := NewWeatherAdapter(geocode.URL, "")
	res := a.Invoke(context.Background(), map[string]string{"location": "Nowhereville"})
	require.False(t, res.OK)
	assert.Contains(t, res.Reason, "location not found")
	assert.False(t, res.Retryable)
}

func TestWeatherAdapter_UpstreamError_Retryable(t *testing.T) {
	geocode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer geocode.Close()

	a := NewWeatherAdapter(geocode.URL, "")
	res := a.Invoke(context.Background(), map[string]string{"location": "Paris"})
	require.False(t, res.OK)
	assert.True(t, res.Retryable)
}

func TestWeatherAdapter_UnknownWeatherCode(t *testing.T) {
	geocode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"name":"Oslo","country":"Norway","latitude":59.91,"longitude":10.75}]}`))
	}))
	defer geocode.Close()
	forecast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"current":{"temperature_2m":-3,"weather_code":77}}`))
	}))
	defer forecast.Close()

	a := NewWeatherAdapter(geocode.URL, forecast.URL)
	res := a.Invoke(context.Background(), map[string]string{"location": "Oslo"})
	require.True(t, res.OK)
	payload := res.Payload.(map[string]any)
	assert.Equal(t, "Unknown", payload["condition"])
}
