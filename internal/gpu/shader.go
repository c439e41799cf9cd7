package gpu

import (
	"fmt"
	"strings"

	gl "github.com/go-gl/gl/v4.3-core/gl"
)

// compileComputeProgram compiles and links a single compute shader,
// following the same compile-check-link-check sequence as the
// teacher's pack precedent (richinsley-goshadertoy's newProgram /
// mrigankad-gorenderengine's shader setup) generalized from a
// vertex+fragment pair to a single compute stage.
func compileComputeProgram(source string) (uint32, error) {
	shader := gl.CreateShader(gl.COMPUTE_SHADER)
	csrc, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		return 0, fmt.Errorf("compute shader compile failed: %s", log)
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, shader)
	gl.LinkProgram(program)
	gl.DeleteShader(shader)

	var linkStatus int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &linkStatus)
	if linkStatus == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		return 0, fmt.Errorf("compute program link failed: %s", log)
	}

	return program, nil
}

// stepperKernelSource is the compute shader mirror of
// internal/stepper.Step. It must stay byte-for-byte identical to the
// CPU path on interior cells up to floating-point associativity
// (spec.md §4.6). Before computing the Laplacian, each invocation
// injects any source matching its cell and, if it owns the listener
// cell, samples cur into the listener buffer after injection but
// before propagation — sampling must happen from the pre-propagation
// pressure to match the CPU path's "before rotation" readout
// (spec.md §9 Open Question iii).
const stepperKernelSource = `
#version 430

layout(local_size_x = 16, local_size_y = 16) in;

struct StepParams {
	int w, h;
	float k, d, r, twoD;
	int curIdx, prevIdx, nextIdx;
	int listenerX, listenerY;
	int subStepIdx;
	int sourceCount;
	int offsetX, offsetY;
	int activeW, activeH;
};

struct GPUSource {
	int x, y;
	float pressure;
	float _pad;
};

layout(std430, binding = 0) buffer Triple { float pressure[]; };
layout(std430, binding = 1) buffer Obstacle { uint obstacle[]; };
layout(std430, binding = 2) buffer ListenerSamples { float listenerOut[]; };
layout(std430, binding = 3) buffer Params { StepParams steps[]; };
layout(std430, binding = 4) buffer Sources { GPUSource sources[]; };

uniform int uStepIdx;

void main() {
	StepParams p = steps[uStepIdx];

	int x = p.offsetX + int(gl_GlobalInvocationID.x);
	int y = p.offsetY + int(gl_GlobalInvocationID.y);
	if (x < 0 || x >= p.w || y < 0 || y >= p.h) return;
	if (x >= p.offsetX + p.activeW || y >= p.offsetY + p.activeH) return;

	int cellCount = p.w * p.h;
	int i = y * p.w + x;

	int curBase = p.curIdx * cellCount;
	int prevBase = p.prevIdx * cellCount;
	int nextBase = p.nextIdx * cellCount;

	bool isObstacle = obstacle[i] != 0u;

	// Inject audio sources into cur before propagation.
	int sourceBase = p.subStepIdx * 16;
	for (int s = 0; s < p.sourceCount; s++) {
		GPUSource src = sources[sourceBase + s];
		if (src.x == x && src.y == y && !isObstacle) {
			pressure[curBase + i] += src.pressure;
		}
	}

	// Sample the listener from the post-injection, pre-propagation cur.
	if (x == p.listenerX && y == p.listenerY) {
		listenerOut[p.subStepIdx] = pressure[curBase + i];
	}

	if (isObstacle) {
		pressure[nextBase + i] = 0.0;
		return;
	}

	bool interior = x > p.offsetX && x < p.offsetX + p.activeW - 1 &&
		y > p.offsetY && y < p.offsetY + p.activeH - 1 &&
		x > 0 && x < p.w - 1 && y > 0 && y < p.h - 1;

	if (interior) {
		float c = pressure[curBase + i];
		float up = pressure[curBase + i - p.w];
		float down = pressure[curBase + i + p.w];
		float left = pressure[curBase + i - 1];
		float right = pressure[curBase + i + 1];
		float lap = left + right + up + down - 4.0 * c;
		pressure[nextBase + i] = p.twoD * c - p.d * pressure[prevBase + i] + p.d * p.k * lap;
	} else if (x == 0 || x == p.w - 1 || y == 0 || y == p.h - 1) {
		bool corner = (x == 0 || x == p.w - 1) && (y == 0 || y == p.h - 1);
		if (p.r < 0.1) {
			if (corner) {
				pressure[nextBase + i] = 0.0;
			} else {
				float a = min(1.0, sqrt(p.k));
				int ix = x, iy = y;
				if (x == 0) ix = 1; else if (x == p.w - 1) ix = p.w - 2;
				if (y == 0) iy = 1; else if (y == p.h - 1) iy = p.h - 2;
				float cv = pressure[curBase + i];
				float inward = pressure[curBase + iy * p.w + ix];
				pressure[nextBase + i] = cv - a * (cv - inward);
			}
		} else {
			int ix = x, iy = y;
			if (x == 0) ix = 1; else if (x == p.w - 1) ix = p.w - 2;
			if (y == 0) iy = 1; else if (y == p.h - 1) iy = p.h - 2;
			pressure[nextBase + i] = pressure[nextBase + iy * p.w + ix] * p.r;
		}
	}
}
`
