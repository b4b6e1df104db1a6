package motion

// OrientationFilter is the external sensor-fusion collaborator: init,
// release, push_gyro, push_accel, recenter, set_bias, and
// read_orientation. The numerical algorithm itself lives on the other
// side of this interface; this package only defines the contract and
// drives it.
type OrientationFilter interface {
	Init() error
	Release()
	PushGyro(values [3]float64, timestampNs int64)
	PushAccel(values [3]float64, timestampNs int64)
	Recenter()
	SetBias(bias [3]float64)
	ReadOrientation() (angleAxis [3]float64, ok bool)
}
