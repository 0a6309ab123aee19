package embedding

import "math"

const hashModelName = "hash-v1"

// hashVector derives a deterministic embedding from character codes. It is
// the tier of last resort: same input, same vector, any dimension, no
// external dependencies. The vector is L2-normalized so cosine scores stay
// comparable with model-generated embeddings.
func hashVector(text string, dimension int) []float32 {
	vector := make([]float32, dimension)

	if len(text) == 0 {
		uniform := float32(1.0 / math.Sqrt(float64(dimension)))
		for i := range vector {
			vector[i] = uniform
		}
		return vector
	}

	for i, r := range text {
		// Mix position and code point so anagrams do not collide.
		vector[i%dimension] += float32((int(r)*31+i)%211) / 211.0
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return hashVector("", dimension)
	}

	for i := range vector {
		vector[i] = float32(float64(vector[i]) / norm)
	}

	return vector
}
