package video

import (
	"gocv.io/x/gocv"
)

//Frames is a decoded video held in memory, BGR frames in order
type Frames struct {
	mats   []gocv.Mat
	fps    float64
	width  int
	height int
}

//Len returns the number of frames
func (f *Frames) Len() int {
	return len(f.mats)
}

//At returns frame i, owned by Frames
func (f *Frames) At(i int) gocv.Mat {
	return f.mats[i]
}

func (f *Frames) FPS() float64 {
	return f.fps
}

func (f *Frames) Size() (width, height int) {
	return f.width, f.height
}

//Close frees every frame
func (f *Frames) Close() {
	for i := range f.mats {
		f.mats[i].Close()
	}
	f.mats = nil
}
