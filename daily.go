/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Seednode/tabletop/daily"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

type generateResponse struct {
	Status  daily.Status `json:"status"`
	Payload daily.Set    `json:"payload"`
	Meta    daily.Meta   `json:"meta"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func openDaily(cfg *Config) (*daily.Service, func(), error) {
	store, err := daily.Open(cfg.dailyDB)
	if err != nil {
		return nil, nil, err
	}

	return daily.NewService(store, daily.Arithmetic{}), func() {
		_ = store.Close()
	}, nil
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any, errs chan<- error) {
	data, err := json.Marshal(v)
	if err != nil {
		errs <- err
		http.Error(w, "encoding failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	if _, err := w.Write(data); err != nil {
		errs <- err
	}
}

func dailyError(cfg *Config, log zerolog.Logger, w http.ResponseWriter, err error, errs chan<- error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, daily.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, daily.ErrInvalidDate):
		status = http.StatusBadRequest
	default:
		log.Error().Err(err).Msg("DAILY: Request failed")
	}

	writeJSON(cfg, w, status, errorResponse{Detail: err.Error()}, errs)
}

func serveDailyGenerate(cfg *Config, log zerolog.Logger, svc *daily.Service, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		status, set, meta, err := svc.Generate(ctx)
		if err != nil {
			dailyError(cfg, log, w, err, errs)
			return
		}

		writeJSON(cfg, w, http.StatusOK, generateResponse{Status: status, Payload: set, Meta: meta}, errs)

		log.Info().
			Str("date", set.Date).
			Str("status", string(status)).
			Str("ip", realIP(r)).
			Dur("elapsed", time.Since(startTime).Round(time.Microsecond)).
			Msg("DAILY: Served generate")
	}
}

func serveDailySet(cfg *Config, log zerolog.Logger, svc *daily.Service, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		date := ps.ByName("date")
		if date == "" {
			date = svc.Today()
		}

		set, err := svc.Get(r.Context(), date)
		if err != nil {
			dailyError(cfg, log, w, err, errs)
			return
		}

		writeJSON(cfg, w, http.StatusOK, set, errs)
	}
}

func serveDailyMeta(cfg *Config, log zerolog.Logger, svc *daily.Service, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		date := ps.ByName("date")
		if date == "" {
			date = svc.Today()
		}

		meta, err := svc.Meta(r.Context(), date)
		if err != nil {
			dailyError(cfg, log, w, err, errs)
			return
		}

		writeJSON(cfg, w, http.StatusOK, meta, errs)
	}
}

func registerDaily(cfg *Config, log zerolog.Logger, svc *daily.Service, mux *httprouter.Router, errs chan<- error) {
	mux.POST(cfg.prefix+"/daily/generate", serveDailyGenerate(cfg, log, svc, errs))
	mux.GET(cfg.prefix+"/daily/today", serveDailySet(cfg, log, svc, errs))
	mux.GET(cfg.prefix+"/daily/today/meta", serveDailyMeta(cfg, log, svc, errs))
	mux.GET(cfg.prefix+"/daily/date/:date", serveDailySet(cfg, log, svc, errs))
	mux.GET(cfg.prefix+"/daily/date/:date/meta", serveDailyMeta(cfg, log, svc, errs))
}
