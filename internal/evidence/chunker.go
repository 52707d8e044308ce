package evidence

// Chunk is an overlapping slice of a source document, the unit the
// semantic tier searches over.
type Chunk struct {
	Text   string
	Offset int
}

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// SplitChunks cuts text into overlapping chunks of roughly chunkSize
// characters with the given overlap, breaking on whitespace when one is
// near the cut point. Zero arguments select the defaults.
func SplitChunks(text string, chunkSize, overlap int) []Chunk {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	if text == "" {
		return nil
	}

	var chunks []Chunk
	step := chunkSize - overlap
	for start := 0; start < len(text); start += step {
		end := start + chunkSize
		if end >= len(text) {
			chunks = append(chunks, Chunk{Text: text[start:], Offset: start})
			break
		}

		// Pull the cut back to the nearest space so words stay whole.
		cut := end
		for cut > start+chunkSize/2 && text[cut-1] != ' ' && text[cut-1] != '\n' {
			cut--
		}
		if cut == start+chunkSize/2 {
			cut = end
		}

		chunks = append(chunks, Chunk{Text: text[start:cut], Offset: start})
	}
	return chunks
}
