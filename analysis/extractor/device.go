package extractor

import (
	"database/sql"

	"github.com/kali20gakki/msprof-sub029/analysis/dbreader"
	"github.com/kali20gakki/msprof-sub029/analysis/record"
)

func newStepTrace(src Source) Extractor {
	return &feature[record.StepTrace]{
		name:  StepTrace,
		src:   src,
		scope: deviceScope,
		table: table{
			db:   "step_trace.db",
			name: "StepTrace",
			query: "SELECT index_id, model_id, fp_start, bp_end, iteration_end, iteration_time, " +
				"fp_bp_time, grad_refresh_bound, data_aug_bound FROM StepTrace ORDER BY model_id, index_id",
		},
		scan: func(c converter) dbreader.ScanFunc[record.StepTrace] {
			return func(rows *sql.Rows) (record.StepTrace, bool, error) {
				var (
					s                       record.StepTrace
					fpStart, bpEnd, iterEnd int64
					iterTime, fpbp          int64
					refresh, dataAug        int64
				)
				if err := rows.Scan(&s.IndexID, &s.ModelID, &fpStart, &bpEnd, &iterEnd, &iterTime,
					&fpbp, &refresh, &dataAug); err != nil {
					return s, false, err
				}
				s.DeviceID = c.deviceID()
				s.FPStartNs = c.optionalCycles(fpStart)
				s.BPEndNs = c.optionalCycles(bpEnd)
				s.IterEndNs, _ = c.cycles(iterEnd)
				s.IterTimeNs = c.duration(iterTime)
				s.FPBPTimeNs = c.duration(fpbp)
				s.GradRefreshNs = c.duration(refresh)
				s.DataAugBoundNs = c.duration(dataAug)
				_, in := c.cycles(iterEnd - iterTime)
				return s, in, nil
			}
		},
	}
}

func newTaskTime(src Source) Extractor {
	return &feature[record.Task]{
		name:  TaskTime,
		src:   src,
		scope: deviceScope,
		table: table{
			db:   "ascend_task.db",
			name: "AscendTask",
			query: "SELECT model_id, index_id, stream_id, task_id, batch_id, start_time, duration, " +
				"task_type, op_name, connection_id FROM AscendTask ORDER BY start_time, stream_id, task_id",
			required: true,
		},
		scan: func(c converter) dbreader.ScanFunc[record.Task] {
			return func(rows *sql.Rows) (record.Task, bool, error) {
				var (
					t          record.Task
					start, dur int64
					opName     string
				)
				if err := rows.Scan(&t.ModelID, &t.IndexID, &t.StreamID, &t.TaskID, &t.BatchID,
					&start, &dur, &t.TaskType, &opName, &t.ConnectionID); err != nil {
					return t, false, err
				}
				var in bool
				t.DeviceID = c.deviceID()
				t.OpName = c.names.Resolve(opName)
				t.StartNs, in = c.cycles(start)
				t.DurNs = c.duration(dur)
				return t, in, nil
			}
		},
	}
}

func newCommunication(src Source) Extractor {
	return &feature[record.Communication]{
		name:  Communication,
		src:   src,
		scope: deviceScope,
		table: table{
			db:   "hccl_single_device.db",
			name: "HCCLSingleDevice",
			query: "SELECT model_id, index_id, op_name, group_name, plane_id, timestamp, duration, " +
				"transport_type, link_type, size, src_rank, dst_rank FROM HCCLSingleDevice " +
				"ORDER BY timestamp, plane_id, rowid",
		},
		scan: func(c converter) dbreader.ScanFunc[record.Communication] {
			return func(rows *sql.Rows) (record.Communication, bool, error) {
				var (
					m               record.Communication
					opName          string
					ts, dur         int64
					transport, link int64
				)
				if err := rows.Scan(&m.ModelID, &m.IndexID, &opName, &m.GroupName, &m.PlaneID, &ts, &dur,
					&transport, &link, &m.SizeBytes, &m.SrcRank, &m.DstRank); err != nil {
					return m, false, err
				}
				var in bool
				m.DeviceID = c.deviceID()
				m.OpName = c.names.Resolve(opName)
				m.GroupName = c.names.Resolve(m.GroupName)
				m.StartNs, in = c.cycles(ts)
				m.DurNs = c.duration(dur)
				m.TransportType = enumName(transportTypes, transport)
				m.LinkType = enumName(linkTypes, link)
				return m, in, nil
			}
		},
	}
}

func newAICoreFreq(src Source) Extractor {
	return &feature[record.FreqSample]{
		name:  AICoreFreq,
		src:   src,
		scope: deviceScope,
		table: table{
			db:    "freq.db",
			name:  "FreqParse",
			query: "SELECT syscnt, freq FROM FreqParse ORDER BY syscnt",
		},
		scan: func(c converter) dbreader.ScanFunc[record.FreqSample] {
			return func(rows *sql.Rows) (record.FreqSample, bool, error) {
				var (
					f      record.FreqSample
					syscnt int64
				)
				if err := rows.Scan(&syscnt, &f.FreqMHz); err != nil {
					return f, false, err
				}
				var in bool
				f.DeviceID = c.deviceID()
				f.TimestampNs, in = c.cycles(syscnt)
				return f, in, nil
			}
		},
	}
}
