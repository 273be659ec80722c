// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chain

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	submitted prometheus.Counter
	confirmed *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	blocks    prometheus.Counter
	height    prometheus.Gauge
	mempool   prometheus.Gauge
}

func NewMetrics(namespace string, registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_submitted",
			Help:      "Transactions accepted into the mempool",
		}),
		confirmed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tx_confirmed",
				Help:      "Transactions confirmed in a block",
			},
			[]string{"kind"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tx_rejected",
				Help:      "Transactions rejected while mining, by reason",
			},
			[]string{"reason"},
		),
		blocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_mined",
			Help:      "Blocks mined by this node",
		}),
		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "block_height",
			Help:      "Height of the latest block, -1 before the first",
		}),
		mempool: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mempool_size",
			Help:      "Transactions waiting to be mined",
		}),
	}

	err := errors.Join(
		registerer.Register(m.submitted),
		registerer.Register(m.confirmed),
		registerer.Register(m.rejected),
		registerer.Register(m.blocks),
		registerer.Register(m.height),
		registerer.Register(m.mempool),
	)
	return m, err
}
