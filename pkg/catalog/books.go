package catalog

import "biblepace/pkg/domain"

var books = []domain.Book{
	// Ancien Testament
	{ID: 1, Name: "Genèse", ChapterCount: 50, Collection: domain.CollectionOld},
	{ID: 2, Name: "Exode", ChapterCount: 40, Collection: domain.CollectionOld},
	{ID: 3, Name: "Lévitique", ChapterCount: 27, Collection: domain.CollectionOld},
	{ID: 4, Name: "Nombres", ChapterCount: 36, Collection: domain.CollectionOld},
	{ID: 5, Name: "Deutéronome", ChapterCount: 34, Collection: domain.CollectionOld},
	{ID: 6, Name: "Josué", ChapterCount: 24, Collection: domain.CollectionOld},
	{ID: 7, Name: "Juges", ChapterCount: 21, Collection: domain.CollectionOld},
	{ID: 8, Name: "Ruth", ChapterCount: 4, Collection: domain.CollectionOld},
	{ID: 9, Name: "1 Samuel", ChapterCount: 31, Collection: domain.CollectionOld},
	{ID: 10, Name: "2 Samuel", ChapterCount: 24, Collection: domain.CollectionOld},
	{ID: 11, Name: "1 Rois", ChapterCount: 22, Collection: domain.CollectionOld},
	{ID: 12, Name: "2 Rois", ChapterCount: 25, Collection: domain.CollectionOld},
	{ID: 13, Name: "1 Chroniques", ChapterCount: 29, Collection: domain.CollectionOld},
	{ID: 14, Name: "2 Chroniques", ChapterCount: 36, Collection: domain.CollectionOld},
	{ID: 15, Name: "Esdras", ChapterCount: 10, Collection: domain.CollectionOld},
	{ID: 16, Name: "Néhémie", ChapterCount: 13, Collection: domain.CollectionOld},
	{ID: 17, Name: "Esther", ChapterCount: 10, Collection: domain.CollectionOld},
	{ID: 18, Name: "Job", ChapterCount: 42, Collection: domain.CollectionOld},
	{ID: 19, Name: "Psaumes", ChapterCount: 150, Collection: domain.CollectionOld},
	{ID: 20, Name: "Proverbes", ChapterCount: 31, Collection: domain.CollectionOld},
	{ID: 21, Name: "Ecclésiaste", ChapterCount: 12, Collection: domain.CollectionOld},
	{ID: 22, Name: "Cantique des Cantiques", ChapterCount: 8, Collection: domain.CollectionOld},
	{ID: 23, Name: "Ésaïe", ChapterCount: 66, Collection: domain.CollectionOld},
	{ID: 24, Name: "Jérémie", ChapterCount: 52, Collection: domain.CollectionOld},
	{ID: 25, Name: "Lamentations", ChapterCount: 5, Collection: domain.CollectionOld},
	{ID: 26, Name: "Ézéchiel", ChapterCount: 48, Collection: domain.CollectionOld},
	{ID: 27, Name: "Daniel", ChapterCount: 12, Collection: domain.CollectionOld},
	{ID: 28, Name: "Osée", ChapterCount: 14, Collection: domain.CollectionOld},
	{ID: 29, Name: "Joël", ChapterCount: 4, Collection: domain.CollectionOld},
	{ID: 30, Name: "Amos", ChapterCount: 9, Collection: domain.CollectionOld},
	{ID: 31, Name: "Abdias", ChapterCount: 1, Collection: domain.CollectionOld},
	{ID: 32, Name: "Jonas", ChapterCount: 4, Collection: domain.CollectionOld},
	{ID: 33, Name: "Michée", ChapterCount: 7, Collection: domain.CollectionOld},
	{ID: 34, Name: "Nahum", ChapterCount: 3, Collection: domain.CollectionOld},
	{ID: 35, Name: "Habakuk", ChapterCount: 3, Collection: domain.CollectionOld},
	{ID: 36, Name: "Sophonie", ChapterCount: 3, Collection: domain.CollectionOld},
	{ID: 37, Name: "Aggée", ChapterCount: 2, Collection: domain.CollectionOld},
	{ID: 38, Name: "Zacharie", ChapterCount: 14, Collection: domain.CollectionOld},
	{ID: 39, Name: "Malachie", ChapterCount: 3, Collection: domain.CollectionOld},
	// Nouveau Testament
	{ID: 40, Name: "Matthieu", ChapterCount: 28, Collection: domain.CollectionNew},
	{ID: 41, Name: "Marc", ChapterCount: 16, Collection: domain.CollectionNew},
	{ID: 42, Name: "Luc", ChapterCount: 24, Collection: domain.CollectionNew},
	{ID: 43, Name: "Jean", ChapterCount: 21, Collection: domain.CollectionNew},
	{ID: 44, Name: "Actes des Apôtres", ChapterCount: 28, Collection: domain.CollectionNew},
	{ID: 45, Name: "Romains", ChapterCount: 16, Collection: domain.CollectionNew},
	{ID: 46, Name: "1 Corinthiens", ChapterCount: 16, Collection: domain.CollectionNew},
	{ID: 47, Name: "2 Corinthiens", ChapterCount: 13, Collection: domain.CollectionNew},
	{ID: 48, Name: "Galates", ChapterCount: 6, Collection: domain.CollectionNew},
	{ID: 49, Name: "Éphésiens", ChapterCount: 6, Collection: domain.CollectionNew},
	{ID: 50, Name: "Philippiens", ChapterCount: 4, Collection: domain.CollectionNew},
	{ID: 51, Name: "Colossiens", ChapterCount: 4, Collection: domain.CollectionNew},
	{ID: 52, Name: "1 Thessaloniciens", ChapterCount: 5, Collection: domain.CollectionNew},
	{ID: 53, Name: "2 Thessaloniciens", ChapterCount: 3, Collection: domain.CollectionNew},
	{ID: 54, Name: "1 Timothée", ChapterCount: 6, Collection: domain.CollectionNew},
	{ID: 55, Name: "2 Timothée", ChapterCount: 4, Collection: domain.CollectionNew},
	{ID: 56, Name: "Tite", ChapterCount: 3, Collection: domain.CollectionNew},
	{ID: 57, Name: "Philémon", ChapterCount: 1, Collection: domain.CollectionNew},
	{ID: 58, Name: "Hébreux", ChapterCount: 13, Collection: domain.CollectionNew},
	{ID: 59, Name: "Jacques", ChapterCount: 5, Collection: domain.CollectionNew},
	{ID: 60, Name: "1 Pierre", ChapterCount: 5, Collection: domain.CollectionNew},
	{ID: 61, Name: "2 Pierre", ChapterCount: 3, Collection: domain.CollectionNew},
	{ID: 62, Name: "1 Jean", ChapterCount: 5, Collection: domain.CollectionNew},
	{ID: 63, Name: "2 Jean", ChapterCount: 1, Collection: domain.CollectionNew},
	{ID: 64, Name: "3 Jean", ChapterCount: 1, Collection: domain.CollectionNew},
	{ID: 65, Name: "Jude", ChapterCount: 1, Collection: domain.CollectionNew},
	{ID: 66, Name: "Apocalypse", ChapterCount: 22, Collection: domain.CollectionNew},
}
