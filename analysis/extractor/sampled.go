package extractor

import (
	"database/sql"

	"github.com/kali20gakki/msprof-sub029/analysis/dbreader"
	"github.com/kali20gakki/msprof-sub029/analysis/record"
)

// The tables below are stamped with device monotonic ns, not cycles.

func newNpuMem(src Source) Extractor {
	return &feature[record.MemorySample]{
		name:  NpuMem,
		src:   src,
		scope: deviceScope,
		table: table{
			db:    "npu_mem.db",
			name:  "NpuMem",
			query: "SELECT event, ddr, hbm, memory, timestamp FROM NpuMem ORDER BY timestamp, event",
		},
		scan: func(c converter) dbreader.ScanFunc[record.MemorySample] {
			return func(rows *sql.Rows) (record.MemorySample, bool, error) {
				var (
					m  record.MemorySample
					ts int64
				)
				if err := rows.Scan(&m.Event, &m.DDRBytes, &m.HBMBytes, &m.TotalBytes, &ts); err != nil {
					return m, false, err
				}
				var in bool
				m.DeviceID = c.deviceID()
				m.TimestampNs, in = c.sample(ts)
				return m, in, nil
			}
		},
	}
}

func newHBM(src Source) Extractor {
	return &feature[record.HBMSample]{
		name:  HBM,
		src:   src,
		scope: deviceScope,
		table: table{
			db:    "hbm.db",
			name:  "HBMbwData",
			query: "SELECT timestamp, bandwidth, hbmid, event_type FROM HBMbwData ORDER BY timestamp, hbmid, event_type",
		},
		scan: func(c converter) dbreader.ScanFunc[record.HBMSample] {
			return func(rows *sql.Rows) (record.HBMSample, bool, error) {
				var (
					h  record.HBMSample
					ts int64
				)
				if err := rows.Scan(&ts, &h.BandwidthMB, &h.HBMID, &h.EventType); err != nil {
					return h, false, err
				}
				var in bool
				h.DeviceID = c.deviceID()
				h.TimestampNs, in = c.sample(ts)
				return h, in, nil
			}
		},
	}
}

func newPCIe(src Source) Extractor {
	return &feature[record.PCIeSample]{
		name:  PCIe,
		src:   src,
		scope: deviceScope,
		table: table{
			db:   "pcie.db",
			name: "PcieOriginalData",
			query: "SELECT timestamp, tx_p_bandwidth, tx_np_bandwidth, rx_p_bandwidth, rx_np_bandwidth " +
				"FROM PcieOriginalData ORDER BY timestamp",
		},
		scan: func(c converter) dbreader.ScanFunc[record.PCIeSample] {
			return func(rows *sql.Rows) (record.PCIeSample, bool, error) {
				var (
					p  record.PCIeSample
					ts int64
				)
				if err := rows.Scan(&ts, &p.TxPost, &p.TxNonPost, &p.RxPost, &p.RxNonPost); err != nil {
					return p, false, err
				}
				var in bool
				p.DeviceID = c.deviceID()
				p.TimestampNs, in = c.sample(ts)
				return p, in, nil
			}
		},
	}
}

func newHCCS(src Source) Extractor {
	return &feature[record.HCCSSample]{
		name:  HCCS,
		src:   src,
		scope: deviceScope,
		table: table{
			db:    "hccs.db",
			name:  "HCCSEventsData",
			query: "SELECT timestamp, txthroughput, rxthroughput FROM HCCSEventsData ORDER BY timestamp",
		},
		scan: func(c converter) dbreader.ScanFunc[record.HCCSSample] {
			return func(rows *sql.Rows) (record.HCCSSample, bool, error) {
				var (
					h  record.HCCSSample
					ts int64
				)
				if err := rows.Scan(&ts, &h.Tx, &h.Rx); err != nil {
					return h, false, err
				}
				var in bool
				h.DeviceID = c.deviceID()
				h.TimestampNs, in = c.sample(ts)
				return h, in, nil
			}
		},
	}
}
