// Package storagehttp реализует Storage API — HTTP-интерфейс storage-узла, который хранит
// блобы чанками на локальном диске (fsstore). Основные эндпоинты:
//   - PUT /blobs/{id} — принимает блоб потоком; итоговые метаданные могут прийти трейлером X-Blob-Metadata.
//   - GET /blobs/{id} — отдаёт блоб целиком или окно по заголовку Range.
//   - HEAD /blobs/{id} — возвращает описание блоба в заголовке X-Blob-Info.
//   - DELETE /blobs/{id} — удаляет блоб.
//   - POST /admin/gc — ручной сбор брошенных загрузок.
//   - GET /health — агрегированные метрики по каталогу данных для health-check'ов.
package storagehttp
