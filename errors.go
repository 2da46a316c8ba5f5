package rawfile

import (
	"errors"
	"strconv"
)

var ErrOutOfBounds = errors.New("Error Read Beyond Reader Bounds")
var ErrTruncatedRecord = errors.New("Error Truncated Record")
var ErrTruncatedEvent = errors.New("Error Truncated Scan Event")
var ErrUnsupportedRevision = errors.New("Error Unsupported File Revision")
var ErrInsufficientCalibrators = errors.New("Error Insufficient Mass Calibrators")
var ErrInvalidExtendedData = errors.New("Error Invalid Extended Data Framing")
var ErrBadFilter = errors.New("Error Bad Filter String")
var ErrDuplicateToken = errors.New("Error Duplicate Filter Token")
var ErrCreateChromTdb = errors.New("Error Creating Chromatogram TileDB Array")
var ErrWriteChromTdb = errors.New("Error Writing Chromatogram TileDB Array")
var ErrCreateIndexTdb = errors.New("Error Creating Scan Index TileDB Array")
var ErrWriteIndexTdb = errors.New("Error Writing Scan Index TileDB Array")

// errAtOffset attaches the failing byte offset to a sentinel error.
// Consumers test with errors.Is against the sentinel; the offset is for
// humans reading logs.
func errAtOffset(err error, offset int64) error {
	return errors.Join(err, errors.New("offset: "+strconv.FormatInt(offset, 10)))
}

// errAtRevision attaches the file revision to a sentinel error.
func errAtRevision(err error, revision int32) error {
	return errors.Join(err, errors.New("file revision: "+strconv.FormatInt(int64(revision), 10)))
}
