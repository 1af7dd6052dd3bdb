package video

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

//ErrUnreadableVideo is returned when a video cannot be opened or has no frames
var ErrUnreadableVideo = errors.New("unreadable video")

//ReadFrames decodes the whole video at path into memory
func ReadFrames(path string) (*Frames, error) {
	cap, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrUnreadableVideo, "%s: %v", path, err)
	}
	defer cap.Close()

	frames := &Frames{
		fps:    cap.Get(gocv.VideoCaptureFPS),
		width:  int(cap.Get(gocv.VideoCaptureFrameWidth)),
		height: int(cap.Get(gocv.VideoCaptureFrameHeight)),
	}

	frameMat := gocv.NewMat()
	defer frameMat.Close()
	for cap.Read(&frameMat) {
		if frameMat.Empty() {
			break
		}
		frames.mats = append(frames.mats, frameMat.Clone())
	}

	if frames.Len() == 0 {
		return nil, errors.Wrapf(ErrUnreadableVideo, "%s: no frames", path)
	}
	if frames.width == 0 || frames.height == 0 {
		frames.width, frames.height = frames.mats[0].Cols(), frames.mats[0].Rows()
	}
	return frames, nil
}
