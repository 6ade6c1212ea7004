// Package mjpeg splits a raw MJPEG byte stream into JPEG frames and writes
// them back out as a multipart/x-mixed-replace body.
//
// Frames are delimited by a raw scan for the SOI (0xFF 0xD8) and EOI
// (0xFF 0xD9) byte pairs. No JPEG parsing is done: a marker pair occurring
// inside entropy-coded data, or inside an embedded thumbnail, ends the frame
// early. This is a known limitation of the byte-pair approach. Transcoders
// writing image2pipe mjpeg output do not embed thumbnails and stuff 0xFF
// bytes in scan data, so in practice only the real delimiters match.
//
// Usage:
//
//	scanner := mjpeg.NewScanner(stdout)
//	pw := mjpeg.NewPartWriter(w)
//	for scanner.Next() {
//		if err := pw.WriteFrame(scanner.Frame()); err != nil {
//			return err
//		}
//	}
//	return scanner.Err()
package mjpeg
