package domain

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// LogStatus grades a single sensor log entry.
type LogStatus string

const (
	LogNormal  LogStatus = "normal"
	LogWarning LogStatus = "warning"
	LogError   LogStatus = "error"
)

// SensorLog is one recorded sample of a station sensor.
type SensorLog struct {
	Timestamp time.Time `json:"timestamp"`
	Sensor    Sensor    `json:"sensor"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Status    LogStatus `json:"status"`
	Message   string    `json:"message,omitempty"`
}

// DefaultLogCount is the number of entries shown on the sensor log page.
const DefaultLogCount = 50

// SensorLogInterval separates consecutive log entries.
const SensorLogInterval = 30 * time.Minute

// logProfile is the expected value and spread of a sensor's samples.
type logProfile struct {
	base     float64
	variance float64
}

var logProfiles = map[Sensor]logProfile{
	SensorTemperature:    {base: 30, variance: 5},
	SensorHumidity:       {base: 70, variance: 10},
	SensorRainfall:       {base: 2, variance: 3},
	SensorWaterLevel:     {base: 140, variance: 2},
	SensorWindSpeed:      {base: 2, variance: 1.5},
	SensorSolarRadiation: {base: 800, variance: 200},
	SensorET0:            {base: 4, variance: 1},
}

// GenerateSensorLogs returns count entries for a station sensor, newest first,
// spaced SensorLogInterval apart going back from now. Roughly one in ten
// entries is a warning and one in twenty an error.
func GenerateSensorLogs(stationID string, sensor Sensor, now time.Time, count int) []SensorLog {
	if count <= 0 {
		return []SensorLog{}
	}
	rng := NewRand(xxhash.Sum64String(stationID + "|" + string(sensor)))
	p := logProfiles[sensor]
	unit := sensor.Unit()

	logs := make([]SensorLog, count)
	for i := range count {
		value := p.base + (rng.Float64()*p.variance*2 - p.variance)
		entry := SensorLog{
			Timestamp: now.Add(-time.Duration(i) * SensorLogInterval),
			Sensor:    sensor,
			Value:     value,
			Unit:      unit,
			Status:    LogNormal,
		}
		switch roll := rng.Float64(); {
		case roll > 0.95:
			entry.Status = LogError
			entry.Message = fmt.Sprintf("Value outside expected range: %.2f %s", value, unit)
		case roll > 0.85:
			entry.Status = LogWarning
			entry.Message = fmt.Sprintf("Value approaching threshold: %.2f %s", value, unit)
		}
		logs[i] = entry
	}
	return logs
}

// MaintenanceType classifies a maintenance visit.
type MaintenanceType string

const (
	MaintenanceCalibration  MaintenanceType = "calibration"
	MaintenanceRepair       MaintenanceType = "repair"
	MaintenanceInspection   MaintenanceType = "inspection"
	MaintenanceFirmware     MaintenanceType = "firmware"
	MaintenanceInstallation MaintenanceType = "installation"
)

// MaintenanceEvent is one entry of a station's service history.
type MaintenanceEvent struct {
	Date        string          `json:"date"`
	Type        MaintenanceType `json:"type"`
	Technician  string          `json:"technician"`
	Description string          `json:"description"`
}

// MaintenanceHistory returns the service history shared by all stations, newest first.
func MaintenanceHistory() []MaintenanceEvent {
	return []MaintenanceEvent{
		{Date: "2024-01-10", Type: MaintenanceCalibration, Technician: "Somchai K.", Description: "Regular calibration performed. All sensors within expected parameters."},
		{Date: "2023-11-15", Type: MaintenanceRepair, Technician: "Prasert L.", Description: "Replaced power supply unit due to voltage fluctuations."},
		{Date: "2023-09-22", Type: MaintenanceInspection, Technician: "Nattapong S.", Description: "Routine inspection. Cleaned solar panels and sensor housing."},
		{Date: "2023-08-05", Type: MaintenanceFirmware, Technician: "System", Description: "Automatic firmware update to version 3.2.1"},
		{Date: "2023-06-15", Type: MaintenanceInstallation, Technician: "Installation Team", Description: "Initial installation and configuration of sensor array."},
	}
}

// SensorInfo is the hardware datasheet of the device behind a reading.
type SensorInfo struct {
	ID              string `json:"id"`
	Model           string `json:"model"`
	SerialNumber    string `json:"serialNumber"`
	Manufacturer    string `json:"manufacturer"`
	InstallDate     string `json:"installDate"`
	LastCalibration string `json:"lastCalibration"`
	NextCalibration string `json:"nextCalibration"`
	Accuracy        string `json:"accuracy"`
	Range           string `json:"range"`
	Location        string `json:"location"`
	Description     string `json:"description"`
}

// DescribeSensor returns the device metadata for a station sensor. Identifiers
// are stable per (station, sensor).
func DescribeSensor(st Station, sensor Sensor) SensorInfo {
	h := xxhash.Sum64String(st.ID + "|" + string(sensor))
	info := SensorInfo{
		ID:              fmt.Sprintf("SN-%04d", h%10000),
		Manufacturer:    "LSI LASTEM",
		InstallDate:     "2023-06-15",
		LastCalibration: "2024-01-10",
		NextCalibration: "2024-07-10",
		Location:        st.Name + ", Mukdahan Province",
	}
	if sensor.IsWater() {
		info.Model = "DQA230.1"
		info.SerialNumber = fmt.Sprintf("DQA-%05d", (h>>16)%100000)
		info.Accuracy = "±0.2mm"
		info.Range = "0-500mm"
		info.Description = "High-precision rain gauge and water level sensor"
		return info
	}
	info.Model = "ISMMA2300"
	info.SerialNumber = fmt.Sprintf("ISMMA-%05d", (h>>16)%100000)
	info.Accuracy = "±0.1°C"
	info.Range = "-40°C to +60°C"
	info.Description = "Professional weather monitoring sensor for ET₀ calculation"
	return info
}
