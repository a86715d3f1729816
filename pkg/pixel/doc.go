// Package pixel decodes RGB565 pixel buffers received from the camera.
package pixel

// The camera firmware packs each pixel into 16 bits (5 bits red, 6 bits
// green, 5 bits blue) and sends the two bytes low byte first. Depending on
// the sensor driver the bytes or the red/blue channels may arrive swapped,
// so decoding takes two independent orientation toggles which are purely
// display corrections.
