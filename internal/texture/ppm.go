package texture

import (
	"bufio"
	"image"
	"image/color"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

func init() {
	image.RegisterFormat("ppm", "P6", decodePPM, decodePPMConfig)
}

type ppmHeader struct {
	width, height int
}

// readPPMHeader parses "P6 <width> <height> <maxval>" followed by exactly one
// whitespace byte. Only 8-bit samples are accepted.
func readPPMHeader(br *bufio.Reader) (ppmHeader, error) {
	magic := make([]byte, 2)
	if _, err := io.ReadFull(br, magic); err != nil || magic[0] != 'P' || magic[1] != '6' {
		return ppmHeader{}, errors.New("not a P6 ppm")
	}
	var tokens [3]int
	for i := range tokens {
		tok, err := readPPMToken(br)
		if err != nil {
			return ppmHeader{}, errors.Wrap(err, "ppm header incomplete")
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			return ppmHeader{}, errors.Wrapf(err, "ppm header field %d", i)
		}
		tokens[i] = n
	}
	if tokens[2] != 255 {
		return ppmHeader{}, errors.Errorf("unsupported max value %d", tokens[2])
	}
	if tokens[0] <= 0 || tokens[1] <= 0 {
		return ppmHeader{}, errors.Errorf("invalid ppm size %dx%d", tokens[0], tokens[1])
	}
	return ppmHeader{width: tokens[0], height: tokens[1]}, nil
}

// readPPMToken skips whitespace and '#' comments, then reads one token and
// consumes the whitespace byte that ends it.
func readPPMToken(br *bufio.Reader) (string, error) {
	var tok []byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF && len(tok) > 0 {
				return string(tok), nil
			}
			return "", err
		}
		switch {
		case b == '#' && len(tok) == 0:
			if _, err := br.ReadString('\n'); err != nil {
				return "", err
			}
		case isSpace(b):
			if len(tok) > 0 {
				return string(tok), nil
			}
		default:
			tok = append(tok, b)
		}
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\r' || b == '\t'
}

func decodePPMConfig(r io.Reader) (image.Config, error) {
	h, err := readPPMHeader(bufio.NewReader(r))
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.RGBAModel, Width: h.width, Height: h.height}, nil
}

func decodePPM(r io.Reader) (image.Image, error) {
	br := bufio.NewReader(r)
	h, err := readPPMHeader(br)
	if err != nil {
		return nil, err
	}
	rgb := make([]byte, h.width*h.height*3)
	if n, err := io.ReadFull(br, rgb); err != nil {
		return nil, errors.Errorf("ppm data truncated: got %d expected %d", n, len(rgb))
	}
	img := image.NewRGBA(image.Rect(0, 0, h.width, h.height))
	for i := 0; i < h.width*h.height; i++ {
		copy(img.Pix[i*4:], rgb[i*3:i*3+3])
		img.Pix[i*4+3] = 255
	}
	return img, nil
}
