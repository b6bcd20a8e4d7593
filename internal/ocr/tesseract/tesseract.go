// Package tesseract implements an OCR engine on top of the Tesseract C API.
package tesseract

import (
	"context"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"

	apperrors "github.com/GriffinCanCode/screenlate/internal/errors"
	"github.com/GriffinCanCode/screenlate/internal/ocr"
)

// Modes select the page segmentation and preprocessing of an engine, so
// several Tesseract engines can vote on the same frame.
const (
	ModeAuto      = "auto"
	ModeBlock     = "block"
	ModeSparse    = "sparse"
	ModeThreshold = "threshold"
)

var languages = map[string]string{
	"en": "eng", "ru": "rus", "de": "deu", "fr": "fra", "es": "spa", "it": "ita",
	"pt": "por", "pl": "pol", "uk": "ukr", "tr": "tur", "ja": "jpn", "ko": "kor",
	"zh": "chi_sim", "zh-cn": "chi_sim", "zh-tw": "chi_tra",
}

// LanguageCode maps an ISO code to Tesseract's traineddata name.
func LanguageCode(iso string) string {
	if code, ok := languages[strings.ToLower(iso)]; ok {
		return code
	}
	return iso
}

// Engine runs one gosseract client. Calls are serialized because a client
// holds a single image at a time.
type Engine struct {
	ref    ocr.EngineRef
	mode   string
	mu     sync.Mutex
	client *gosseract.Client
}

// New creates an engine reading lang (ISO code) with the given mode.
func New(ref ocr.EngineRef, lang, mode string) (*Engine, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(LanguageCode(lang)); err != nil {
		client.Close()
		return nil, apperrors.Wrapf(err, apperrors.ConfigInvalid, "tesseract %s: set language", ref.ID)
	}
	if err := client.SetPageSegMode(pageSegMode(mode)); err != nil {
		client.Close()
		return nil, apperrors.Wrapf(err, apperrors.ConfigInvalid, "tesseract %s: set page segmentation", ref.ID)
	}
	return &Engine{ref: ref, mode: mode, client: client}, nil
}

func pageSegMode(mode string) gosseract.PageSegMode {
	switch mode {
	case ModeBlock:
		return gosseract.PSM_SINGLE_BLOCK
	case ModeSparse:
		return gosseract.PSM_SPARSE_TEXT
	default:
		return gosseract.PSM_AUTO
	}
}

func (e *Engine) Ref() ocr.EngineRef { return e.ref }

// Recognize reads text from a PNG frame. Confidence is the mean word confidence.
func (e *Engine) Recognize(ctx context.Context, frame []byte) (ocr.Recognition, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Recognition{}, err
	}
	if e.mode == ModeThreshold {
		processed, err := threshold(frame)
		if err != nil {
			return ocr.Recognition{}, err
		}
		frame = processed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(frame); err != nil {
		return ocr.Recognition{}, apperrors.Wrap(err, apperrors.InvalidImage, "set image")
	}
	text, err := e.client.Text()
	if err != nil {
		return ocr.Recognition{}, err
	}

	var total float64
	var words int
	if boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD); err == nil {
		for _, box := range boxes {
			if box.Confidence > 0 {
				total += box.Confidence
				words++
			}
		}
	}
	rec := ocr.Recognition{Text: text}
	if words > 0 {
		rec.Confidence = total / float64(words) / 100
	}
	return rec, nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}

// threshold binarizes the frame, which helps with text drawn over busy backgrounds.
func threshold(frame []byte) ([]byte, error) {
	gray, err := gocv.IMDecode(frame, gocv.IMReadGrayScale)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.InvalidImage, "decode frame")
	}
	defer gray.Close()
	if gray.Empty() {
		return nil, apperrors.New(apperrors.InvalidImage, "decode frame: empty image")
	}

	bin := gocv.NewMat()
	defer bin.Close()
	gocv.AdaptiveThreshold(gray, &bin, 255, gocv.AdaptiveThresholdMean, gocv.ThresholdBinary, 11, 2)

	buf, err := gocv.IMEncode(gocv.PNGFileExt, bin)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.InvalidImage, "encode frame")
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}
