package transcode

// Emit hands a chunk to the next stage. The emitting stage must not modify
// the chunk afterwards.
type Emit func(chunk []byte) error

// Stage is one step of a transcoding flow. Process is called for every input
// chunk in order; Finish is called once after the last chunk so the stage can
// flush whatever it still holds. When the flow fails before Finish is reached,
// Abort is called instead with the cause and must release the stage's
// resources without emitting.
type Stage interface {
	Name() string
	Process(chunk []byte, emit Emit) error
	Finish(emit Emit) error
	Abort(err error)
}
