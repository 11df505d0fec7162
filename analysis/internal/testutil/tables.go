package testutil

// CREATE TABLE statements matching the schemas the extractors query.
const (
	GeHashTable     = `CREATE TABLE GeHashInfo (hash_key TEXT, hash_value TEXT)`
	ApiDataTable    = `CREATE TABLE ApiData (struct_type TEXT, id TEXT, level TEXT, thread_id INTEGER, item_id TEXT, "start" INTEGER, "end" INTEGER, connection_id INTEGER)`
	MsprofTxTable   = `CREATE TABLE MsprofTx (pid INTEGER, tid INTEGER, category INTEGER, event_type TEXT, start_time INTEGER, end_time INTEGER, message TEXT)`
	StepTraceTable  = `CREATE TABLE StepTrace (index_id INTEGER, model_id INTEGER, fp_start INTEGER, bp_end INTEGER, iteration_end INTEGER, iteration_time INTEGER, fp_bp_time INTEGER, grad_refresh_bound INTEGER, data_aug_bound INTEGER)`
	AscendTaskTable = `CREATE TABLE AscendTask (model_id INTEGER, index_id INTEGER, stream_id INTEGER, task_id INTEGER, batch_id INTEGER, start_time INTEGER, duration INTEGER, task_type TEXT, op_name TEXT, connection_id INTEGER)`
	HCCLTable       = `CREATE TABLE HCCLSingleDevice (model_id INTEGER, index_id INTEGER, op_name TEXT, group_name TEXT, plane_id INTEGER, timestamp INTEGER, duration INTEGER, transport_type INTEGER, link_type INTEGER, size INTEGER, src_rank INTEGER, dst_rank INTEGER)`
	NpuMemTable     = `CREATE TABLE NpuMem (event TEXT, ddr INTEGER, hbm INTEGER, memory INTEGER, timestamp INTEGER)`
	HBMTable        = `CREATE TABLE HBMbwData (timestamp INTEGER, bandwidth REAL, hbmid INTEGER, event_type TEXT)`
	PCIeTable       = `CREATE TABLE PcieOriginalData (timestamp INTEGER, tx_p_bandwidth REAL, tx_np_bandwidth REAL, rx_p_bandwidth REAL, rx_np_bandwidth REAL)`
	HCCSTable       = `CREATE TABLE HCCSEventsData (timestamp INTEGER, txthroughput REAL, rxthroughput REAL)`
	FreqTable       = `CREATE TABLE FreqParse (syscnt INTEGER, freq INTEGER)`
)

// DisplayBaseNs is the display time of the host calibration point.
const DisplayBaseNs = HostWallBeginUs * 1000

// HostCycles returns the raw host cycle reading that lands at offsetNs after
// session start (host clock at 1 GHz).
func HostCycles(offsetNs int64) int64 { return HostCntvct + offsetNs }

// DeviceCycles returns the raw device cycle reading that lands at offsetNs
// after session start, for a device added with frequency "1000".
func DeviceCycles(offsetNs int64) int64 { return DeviceCntvct + offsetNs }

// DeviceMonotonic returns the device monotonic sample that lands at offsetNs
// after session start.
func DeviceMonotonic(offsetNs int64) int64 { return DeviceMonotonicNs + offsetNs }
