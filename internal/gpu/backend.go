// Package gpu implements the GPU backend (C6): a device-resident
// pressure triple buffer, per-step parameter and source-injection
// tables, and the fill-all/commit-all/wait-once dispatch protocol of
// spec.md §4.6, via an OpenGL compute shader.
//
// Grounded on richinsley-goshadertoy's renderer-sound_renderer.go
// (setup-once, render-loop-many FBO/program plumbing and a
// synchronization-free buffer readback) and mrigankad-gorenderengine's
// internal/opengl/ssao.go (uniform-location caching, unsafe.Pointer
// buffer uploads). Neither dispatches a compute shader or queues N
// commands before one wait; that orchestration is built directly from
// spec.md §4.6, using gl.DispatchCompute plus one
// gl.FenceSync/gl.ClientWaitSync as OpenGL's rendering of "commit every
// command buffer, wait on every command buffer in order" — OpenGL has
// a single implicit command queue rather than Metal/Vulkan's explicit
// command buffers, so N queued dispatches followed by one fence wait is
// the faithful translation of the protocol.
//
// The backend assumes a GL context is already current on the calling
// thread, made current by the host application's renderer (the
// OpenGL/Three.js pressure-field view is explicitly out of core scope
// per spec.md §1, and owns window/context creation; this backend only
// ever shares that context, matching spec.md §4.6's unified-memory
// framing where supported).
package gpu

import (
	"fmt"
	"unsafe"

	gl "github.com/go-gl/gl/v4.3-core/gl"

	"wavefield-sim/internal/debug"
	"wavefield-sim/internal/field"
	"wavefield-sim/internal/listener"
	"wavefield-sim/internal/simerr"
	"wavefield-sim/internal/source"
	"wavefield-sim/internal/stepper"
)

const (
	maxSubSteps      = 1500
	maxSourcesPerStep = 16
	threadGroupSize  = 16
)

// stepParams mirrors the per-step parameter record of spec.md §4.6:
// grid size, stepper coefficients, rotated triple-buffer indices,
// listener coordinates (or -1 when disabled), the sub-step index, the
// active source count, and the active-region window. Field order and
// alignment match the kernel's std430 StepParams struct (every member
// is a 4-byte scalar, so no padding is introduced).
type stepParams struct {
	W, H               int32
	K, D, R, TwoD      float32
	CurIdx, PrevIdx, NextIdx int32
	ListenerX, ListenerY    int32
	SubStepIdx         int32
	SourceCount        int32
	OffsetX, OffsetY   int32
	ActiveW, ActiveH   int32
}

type gpuSource struct {
	X, Y     int32
	Pressure float32
	_        float32 // pad to 16 bytes, matching the kernel's GPUSource _pad member
}

// Backend is the OpenGL compute-shader implementation of GPUBackend.
type Backend struct {
	Logger *debug.Logger

	initialized bool
	available   bool
	lastErr     error

	w, h int

	program uint32

	tripleSSBO    uint32
	obstacleSSBO  uint32
	listenerSSBO  uint32
	paramsSSBO    uint32
	sourceSSBO    uint32

	obstacleScratch []uint32 // reused upload staging buffer, one uint32 per cell

	failing bool // sticky backend-failure transition state
}

// NewBackend constructs an uninitialized GPU backend.
func NewBackend(logger *debug.Logger) *Backend {
	return &Backend{Logger: logger}
}

// buildStepParams fills the per-step parameter and source-table arrays
// the kernel will consume, rotating the (cur,prev,next) index triple
// exactly as field.Field.Rotate() would, one rotation per sub-step.
// It touches no device state, so it is exercised directly by tests that
// have no GL context to run against. Returns the final curIdx/prevIdx
// after all n rotations, for the terminal-state download.
func buildStepParams(f *field.Field, params stepper.Params, sourceTables [][]source.InjectionRecord, l *listener.Listener) ([]stepParams, [][maxSourcesPerStep]gpuSource, int32, int32) {
	n := len(sourceTables)
	steps := make([]stepParams, n)
	sources := make([][maxSourcesPerStep]gpuSource, n)

	curIdx, prevIdx, nextIdx := int32(0), int32(1), int32(2)
	listenerX, listenerY := int32(-1), int32(-1)
	if l != nil && l.Enabled {
		listenerX, listenerY = int32(l.X), int32(l.Y)
	}

	for i := 0; i < n; i++ {
		records := sourceTables[i]
		count := len(records)
		if count > maxSourcesPerStep {
			count = maxSourcesPerStep
		}
		for j := 0; j < count; j++ {
			sources[i][j] = gpuSource{X: int32(records[j].X), Y: int32(records[j].Y), Pressure: float32(records[j].Pressure)}
		}

		steps[i] = stepParams{
			W: int32(f.W), H: int32(f.H),
			K: float32(params.K), D: float32(params.D), R: float32(params.R), TwoD: float32(params.TwoD),
			CurIdx: curIdx, PrevIdx: prevIdx, NextIdx: nextIdx,
			ListenerX: listenerX, ListenerY: listenerY,
			SubStepIdx:  int32(i),
			SourceCount: int32(count),
			OffsetX:     int32(f.Active.MinX), OffsetY: int32(f.Active.MinY),
			ActiveW: int32(f.Active.MaxX - f.Active.MinX + 1),
			ActiveH: int32(f.Active.MaxY - f.Active.MinY + 1),
		}

		// rotate (current, prev, next) -> (next, current, prev) for the
		// following sub-step, mirroring the field's own Rotate().
		curIdx, prevIdx, nextIdx = nextIdx, curIdx, prevIdx
	}

	return steps, sources, curIdx, prevIdx
}

// Available reports whether the backend has successfully initialized
// its device resources and can be dispatched to this frame.
func (b *Backend) Available() bool { return b.available }

// LastError returns the last backend-failure error, if any.
func (b *Backend) LastError() error { return b.lastErr }

// Init allocates device buffers and compiles the compute kernel for a
// W*H grid. Called lazily the first time the backend is enabled, and
// again after a resize.
func (b *Backend) Init(w, h int) error {
	b.w, b.h = w, h

	prog, err := compileComputeProgram(stepperKernelSource)
	if err != nil {
		b.available = false
		b.lastErr = err
		if b.Logger != nil {
			b.Logger.LogGPUf(debug.LogLevelWarning, "GPU init failed, staying on CPU: %v", err)
		}
		return simerr.Wrap(simerr.ResourceUnavailable, "GPU compute program failed to compile", err)
	}
	b.program = prog

	gl.GenBuffers(1, &b.tripleSSBO)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.tripleSSBO)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, 3*w*h*4, nil, gl.DYNAMIC_DRAW)

	// The kernel declares Obstacle as a std430 uint array (4-byte
	// stride), not a packed byte array, so the device buffer and the
	// upload staging slice are both one uint32 per cell.
	gl.GenBuffers(1, &b.obstacleSSBO)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.obstacleSSBO)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, w*h*4, nil, gl.DYNAMIC_DRAW)
	b.obstacleScratch = make([]uint32, w*h)

	gl.GenBuffers(1, &b.listenerSSBO)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.listenerSSBO)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, maxSubSteps*4, nil, gl.DYNAMIC_DRAW)

	gl.GenBuffers(1, &b.paramsSSBO)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.paramsSSBO)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, maxSubSteps*int(unsafe.Sizeof(stepParams{})), nil, gl.DYNAMIC_DRAW)

	gl.GenBuffers(1, &b.sourceSSBO)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.sourceSSBO)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, maxSubSteps*maxSourcesPerStep*int(unsafe.Sizeof(gpuSource{})), nil, gl.DYNAMIC_DRAW)

	b.initialized = true
	b.available = true
	b.lastErr = nil
	return nil
}

// Shutdown releases device resources.
func (b *Backend) Shutdown() {
	if !b.initialized {
		return
	}
	gl.DeleteProgram(b.program)
	bufs := []uint32{b.tripleSSBO, b.obstacleSSBO, b.listenerSSBO, b.paramsSSBO, b.sourceSSBO}
	gl.DeleteBuffers(int32(len(bufs)), &bufs[0])
	b.initialized = false
	b.available = false
}

// RunFrame implements the frame protocol of spec.md §4.6: upload the
// initial field and obstacle mask, fill every step's parameter and
// source records without dispatching, commit every command (one
// DispatchCompute call per sub-step against the active window), wait
// once, then download the terminal cur/prev slots and listener vector.
func (b *Backend) RunFrame(f *field.Field, params stepper.Params, sourceTables [][]source.InjectionRecord, l *listener.Listener) error {
	n := len(sourceTables)
	if n == 0 {
		return nil
	}
	if n > maxSubSteps {
		return simerr.New(simerr.Overload, "GPU frame sub-step count exceeds device capacity")
	}

	if err := b.uploadInitialState(f); err != nil {
		return b.fail(err)
	}

	steps, sources, curIdx, prevIdx := buildStepParams(f, params, sourceTables, l)

	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.paramsSSBO)
	gl.BufferSubData(gl.SHADER_STORAGE_BUFFER, 0, n*int(unsafe.Sizeof(stepParams{})), unsafe.Pointer(&steps[0]))

	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.sourceSSBO)
	gl.BufferSubData(gl.SHADER_STORAGE_BUFFER, 0, n*maxSourcesPerStep*int(unsafe.Sizeof(gpuSource{})), unsafe.Pointer(&sources[0]))

	gl.UseProgram(b.program)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, 0, b.tripleSSBO)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, 1, b.obstacleSSBO)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, 2, b.listenerSSBO)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, 3, b.paramsSSBO)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, 4, b.sourceSSBO)

	for i := 0; i < n; i++ {
		gl.Uniform1i(gl.GetUniformLocation(b.program, gl.Str("uStepIdx\x00")), int32(i))
		groupsX := uint32((int(steps[i].ActiveW) + threadGroupSize - 1) / threadGroupSize)
		groupsY := uint32((int(steps[i].ActiveH) + threadGroupSize - 1) / threadGroupSize)
		gl.DispatchCompute(groupsX, groupsY, 1)
		gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT)
	}

	fence := gl.FenceSync(gl.SYNC_GPU_COMMANDS_COMPLETE, 0)
	gl.ClientWaitSync(fence, gl.SYNC_FLUSH_COMMANDS_BIT, 1e9 /* 1s */)
	gl.DeleteSync(fence)

	if err := checkGLError(); err != nil {
		return b.fail(err)
	}

	b.downloadTerminalState(f, curIdx, prevIdx)
	b.downloadListenerVector(l, n)

	b.reportFailure(false)
	return nil
}

func (b *Backend) uploadInitialState(f *field.Field) error {
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.tripleSSBO)
	cellCount := f.W * f.H
	gl.BufferSubData(gl.SHADER_STORAGE_BUFFER, 0, cellCount*4, unsafe.Pointer(&f.Cur()[0]))
	gl.BufferSubData(gl.SHADER_STORAGE_BUFFER, cellCount*4, cellCount*4, unsafe.Pointer(&f.Prev()[0]))

	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.obstacleSSBO)
	for i, v := range f.Obstacle {
		if v != 0 {
			b.obstacleScratch[i] = 1
		} else {
			b.obstacleScratch[i] = 0
		}
	}
	gl.BufferSubData(gl.SHADER_STORAGE_BUFFER, 0, cellCount*4, unsafe.Pointer(&b.obstacleScratch[0]))
	return checkGLError()
}

func (b *Backend) downloadTerminalState(f *field.Field, curIdx, prevIdx int32) {
	cellCount := f.W * f.H
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.tripleSSBO)
	gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, int(curIdx)*cellCount*4, cellCount*4, unsafe.Pointer(&f.Cur()[0]))
	gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, int(prevIdx)*cellCount*4, cellCount*4, unsafe.Pointer(&f.Prev()[0]))
}

func (b *Backend) downloadListenerVector(l *listener.Listener, n int) {
	if l == nil || !l.Enabled {
		return
	}
	samples := make([]float32, n)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.listenerSSBO)
	gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, 0, n*4, unsafe.Pointer(&samples[0]))
	l.BeginFrame()
	for _, s := range samples {
		l.Sample(s)
	}
}

func (b *Backend) fail(err error) error {
	b.reportFailure(true)
	b.lastErr = err
	return simerr.Wrap(simerr.BackendFailure, "GPU command encoding/dispatch failed", err)
}

func (b *Backend) reportFailure(failing bool) {
	if failing == b.failing {
		return
	}
	b.failing = failing
	if b.Logger == nil {
		return
	}
	if failing {
		b.Logger.LogGPUf(debug.LogLevelError, "GPU backend failure, reverting to CPU for subsequent frames")
	} else {
		b.Logger.LogGPUf(debug.LogLevelInfo, "GPU backend recovered")
	}
}

func checkGLError() error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("gl error 0x%x", code)
	}
	return nil
}
